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

const subscriptionColumns = `id, user_id, plan, active, start_date, end_date, payment_ref, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (models.Subscription, error) {
	var (
		sub     models.Subscription
		endDate sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Active, &sub.StartDate, &endDate,
		&sub.PaymentRef, &sub.CreatedAt)
	if err != nil {
		return models.Subscription{}, err
	}
	if endDate.Valid {
		t := endDate.Time
		sub.EndDate = &t
	}
	return sub, nil
}

// GetActiveSubscription возвращает активную подписку пользователя или nil, если её нет.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND active
			  ORDER BY created_at DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// GetSubscription возвращает подписку по идентификатору.
func (s *Storage) GetSubscription(ctx context.Context, id string) (models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return models.Subscription{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptions возвращает все подписки пользователя, начиная с последней.
func (s *Storage) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateActiveSubscription создаёт активную подписку. Если у пользователя уже есть
// активная подписка, возвращает storage.ErrAlreadySubscribed.
func (s *Storage) CreateActiveSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	const op = "storage.CreateActiveSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return models.Subscription{}, err
	}

	var created models.Subscription
	err := s.inUserTx(ctx, sub.UserID, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND active)`,
			sub.UserID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return storage.ErrAlreadySubscribed
		}

		var err error
		created, err = s.insertActive(ctx, tx, sub)
		return err
	})
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// ReplaceActiveSubscription в одной транзакции отменяет текущую активную подписку
// пользователя (если она есть) и создаёт новую. Возвращает созданную и отменённую подписки.
func (s *Storage) ReplaceActiveSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, *models.Subscription, error) {
	const op = "storage.ReplaceActiveSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return models.Subscription{}, nil, err
	}

	var (
		created   models.Subscription
		cancelled *models.Subscription
	)
	err := s.inUserTx(ctx, sub.UserID, func(tx *sql.Tx) error {
		query := `UPDATE subscriptions
				  SET active = FALSE, end_date = $2
				  WHERE user_id = $1 AND active
				  RETURNING ` + subscriptionColumns
		prev, err := scanSubscription(tx.QueryRowContext(ctx, query, sub.UserID, s.now()))
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			cancelled = &prev
		}

		created, err = s.insertActive(ctx, tx, sub)
		return err
	})
	if err != nil {
		return models.Subscription{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, cancelled, nil
}

// CancelSubscription переводит подписку в неактивное состояние и проставляет end_date.
// Уже отменённая подписка возвращается без изменений.
func (s *Storage) CancelSubscription(ctx context.Context, id string) (models.Subscription, error) {
	const op = "storage.CancelSubscription"
	if err := ctxDone(ctx, op); err != nil {
		return models.Subscription{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}

	query := `UPDATE subscriptions
			  SET active = FALSE, end_date = $2
			  WHERE id = $1 AND active
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetSubscription(ctx, id)
		if getErr != nil {
			return models.Subscription{}, fmt.Errorf("%s: %w", op, getErr)
		}
		return existing, nil
	}
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *Storage) insertActive(ctx context.Context, tx *sql.Tx, sub models.Subscription) (models.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := s.now()
	if sub.StartDate.IsZero() {
		sub.StartDate = now
	}
	query := `INSERT INTO subscriptions (id, user_id, plan, active, start_date, end_date, payment_ref, created_at)
			  VALUES ($1, $2, $3, TRUE, $4, NULL, $5, $6)
			  RETURNING ` + subscriptionColumns
	created, err := scanSubscription(tx.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.Plan, sub.StartDate, sub.PaymentRef, now))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Subscription{}, storage.ErrAlreadySubscribed.With(err)
		}
		return models.Subscription{}, err
	}
	return created, nil
}

// inUserTx выполняет fn в транзакции, удерживая блокировку строки пользователя.
// Мутации подписок одного пользователя сериализуются на этой блокировке.
func (s *Storage) inUserTx(ctx context.Context, userID string, fn func(tx *sql.Tx) error) (err error) {
	if _, parseErr := uuid.Parse(userID); parseErr != nil {
		return storage.ErrUserNotFound
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
