// Package repository реализует хранилище портала на основе PostgreSQL:
// пользователи, подписки, платежи и журнал аудита.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB  *sql.DB
	now func() time.Time
}

// New открывает подключение к PostgreSQL и проверяет его доступность.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithDB(db), nil
}

// NewWithDB оборачивает уже открытое подключение.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{
		DB:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Close закрывает подключение.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// Ping проверяет доступность базы данных.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// requiredTables — таблицы, без которых портал не работает.
var requiredTables = []string{"users", "subscriptions", "payments", "audit_logs"}

// CheckDatabaseReady проверяет, что схема применена.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	const op = "storage.CheckDatabaseReady"

	for _, table := range requiredTables {
		var exists bool
		err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: required table %s missing", op, table)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func ctxDone(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}
