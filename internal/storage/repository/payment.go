package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

const paymentColumns = `intent_id, user_id, plan_id, amount, currency, status, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.IntentID, &p.UserID, &p.PlanID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePayment сохраняет созданное у провайдера платёжное намерение.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	const op = "storage.CreatePayment"
	if err := ctxDone(ctx, op); err != nil {
		return models.Payment{}, err
	}

	now := s.now()
	query := `INSERT INTO payments (intent_id, user_id, plan_id, amount, currency, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			  ON CONFLICT (intent_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
			  RETURNING ` + paymentColumns
	created, err := scanPayment(s.DB.QueryRowContext(ctx, query,
		p.IntentID, p.UserID, p.PlanID, p.Amount, p.Currency, p.Status, now))
	if err != nil {
		return models.Payment{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetPayment возвращает платёж по идентификатору намерения.
func (s *Storage) GetPayment(ctx context.Context, intentID string) (models.Payment, error) {
	const op = "storage.GetPayment"
	if err := ctxDone(ctx, op); err != nil {
		return models.Payment{}, err
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, intentID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, fmt.Errorf("%s: %w", op, storage.ErrPaymentNotFound)
	}
	if err != nil {
		return models.Payment{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// UpdatePaymentStatus обновляет статус платежа.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, intentID, status string) error {
	const op = "storage.UpdatePaymentStatus"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET status = $2, updated_at = $3 WHERE intent_id = $1`,
		intentID, status, s.now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPaymentNotFound)
	}
	return nil
}

// PaymentBelongsTo сообщает, записано ли платёжное намерение за пользователем.
func (s *Storage) PaymentBelongsTo(ctx context.Context, userID, intentID string) (bool, error) {
	const op = "storage.PaymentBelongsTo"
	if err := ctxDone(ctx, op); err != nil {
		return false, err
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE intent_id = $1 AND user_id::text = $2)`,
		intentID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
