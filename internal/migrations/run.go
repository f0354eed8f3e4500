// Package migrations применяет схему базы данных портала.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(files, "sql")
	if err != nil {
		return nil, err
	}
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", source, "pgx_v5", driver)
}

// Run применяет все непримененные миграции. Повторный вызов ничего не делает.
func Run(db *sql.DB) error {
	const op = "migrations.Run"

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Down откатывает все миграции.
func Down(db *sql.DB) error {
	const op = "migrations.Down"

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Version возвращает текущую версию схемы.
func Version(db *sql.DB) (uint, bool, error) {
	const op = "migrations.Version"

	m, err := newMigrate(db)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return version, dirty, nil
}
