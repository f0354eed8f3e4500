package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

const userColumns = `id, username, email, display_name, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

// CreateUser сохраняет нового пользователя. Занятый username или email возвращает storage.ErrUserExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleDeveloper
	}
	query := `INSERT INTO users (id, username, email, display_name, password_hash, role, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.DisplayName, user.PasswordHash, user.Role, s.now()))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists.With(err))
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetUserByLogin возвращает пользователя по username или email.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	const op = "storage.GetUserByLogin"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, login))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const op = "storage.GetUserByID"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей и их общее количество.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	const op = "storage.ListUsers"
	if err := ctxDone(ctx, op); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return users, total, nil
}

// UpdateUserRole меняет роль пользователя и возвращает обновлённую запись.
func (s *Storage) UpdateUserRole(ctx context.Context, userID string, role models.Role) (models.User, error) {
	const op = "storage.UpdateUserRole"
	if err := ctxDone(ctx, op); err != nil {
		return models.User{}, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	query := `UPDATE users SET role = $2 WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID, role))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
