// Package billing связывает каталог тарифов, платёжного провайдера и сверку
// платежей с подписками.
//
// Сверка запускается двумя путями. Синхронный опрос статуса возвращает ошибку
// сверки вызывающему. Webhook провайдера получает ошибку только для журнала:
// ответ провайдеру не зависит от результата сверки.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/metrics"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/paymentprovider"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

const (
	sourcePoll    = "poll"
	sourceWebhook = "webhook"
)

// ErrMissingMetadata возвращается, если событие нельзя связать с пользователем или тарифом.
var ErrMissingMetadata = apperr.New(apperr.KindValidation, "payment intent has no user or plan metadata")

// Provider создаёт и читает платёжные намерения у провайдера.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata paymentprovider.Metadata) (*paymentprovider.Intent, error)
	GetIntent(ctx context.Context, id string) (*paymentprovider.Intent, error)
}

// PaymentRepository хранит журнал созданных платёжных намерений.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p models.Payment) (models.Payment, error)
	GetPayment(ctx context.Context, intentID string) (models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, intentID, status string) error
	PaymentBelongsTo(ctx context.Context, userID, intentID string) (bool, error)
}

// Reconciler превращает успешный платёж в активную подписку.
type Reconciler interface {
	ReconcilePaymentSuccess(ctx context.Context, userID, plan, paymentRef string) (models.Subscription, error)
}

// Options настраивает сервис.
type Options struct {
	Currency string
	// AllowForceCreate разрешает администраторам пропускать проверку владельца при опросе статуса.
	AllowForceCreate bool
}

// Service реализует оплату подписок.
type Service struct {
	provider   Provider
	payments   PaymentRepository
	reconciler Reconciler
	plans      []models.Plan
	catalog    map[string]models.Plan
	opts       Options
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewService создаёт сервис оплаты.
func NewService(provider Provider, payments PaymentRepository, reconciler Reconciler, plans []models.Plan,
	opts Options, m *metrics.Metrics, log *slog.Logger) *Service {
	catalog := make(map[string]models.Plan, len(plans))
	for _, p := range plans {
		catalog[p.ID] = p
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Service{
		provider:   provider,
		payments:   payments,
		reconciler: reconciler,
		plans:      plans,
		catalog:    catalog,
		opts:       opts,
		metrics:    m,
		log:        log,
	}
}

// Plans возвращает каталог тарифов.
func (s *Service) Plans() []models.Plan {
	out := make([]models.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// IntentResult — созданное платёжное намерение.
type IntentResult struct {
	IntentID     string  `json:"intentId"`
	ClientSecret string  `json:"clientSecret"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Plan         string  `json:"plan"`
	PlanName     string  `json:"planName"`
}

// CreateIntent создаёт платёжное намерение на цену тарифа и записывает его за пользователем.
func (s *Service) CreateIntent(ctx context.Context, principal *models.Principal, planID string) (IntentResult, error) {
	const op = "services.billing.CreateIntent"

	plan, ok := s.catalog[planID]
	if !ok {
		return IntentResult{}, apperr.New(apperr.KindValidation, "unknown plan")
	}
	currency := plan.Currency
	if currency == "" {
		currency = s.opts.Currency
	}

	intent, err := s.provider.CreateIntent(ctx, plan.Price, currency, paymentprovider.Metadata{
		UserID:   principal.UserID,
		PlanID:   plan.ID,
		PlanName: plan.Name,
	})
	if err != nil {
		return IntentResult{}, fmt.Errorf("%s: %w", op, err)
	}

	status := intent.Status
	if status == "" {
		status = models.PaymentStatusRequiresPayment
	}
	if _, err := s.payments.CreatePayment(ctx, models.Payment{
		IntentID: intent.ID,
		UserID:   principal.UserID,
		PlanID:   plan.ID,
		Amount:   plan.Price,
		Currency: currency,
		Status:   status,
	}); err != nil {
		return IntentResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment intent created",
		slog.String("user_id", principal.UserID),
		slog.String("intent_id", intent.ID),
		slog.String("plan", plan.ID))

	return IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       status,
		Amount:       models.MajorUnits(plan.Price),
		Currency:     currency,
		Plan:         plan.ID,
		PlanName:     plan.Name,
	}, nil
}

// PollResult — ответ опроса статуса платежа.
type PollResult struct {
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Plan     string  `json:"plan"`
	PlanName string  `json:"planName"`
}

// PollStatus запрашивает статус намерения у провайдера и при успехе сверяет его с подписками.
//
// Намерение другого пользователя неотличимо от отсутствующего. forceCreate
// снимает эту проверку, только если это разрешено настройкой и вызывающий является администратором.
func (s *Service) PollStatus(ctx context.Context, principal *models.Principal, intentID string, forceCreate bool) (PollResult, error) {
	const op = "services.billing.PollStatus"
	log := s.log.With(slog.String("op", op), slog.String("user_id", principal.UserID), slog.String("intent_id", intentID))

	privileged := forceCreate && s.opts.AllowForceCreate && principal.IsAdmin()
	switch {
	case privileged:
		log.Warn("force_create used, ownership check skipped")
	case forceCreate:
		log.Warn("force_create ignored for unprivileged caller")
	}

	payment, err := s.payments.GetPayment(ctx, intentID)
	recorded := err == nil
	if err != nil && !errors.Is(err, storage.ErrPaymentNotFound) {
		return PollResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !privileged && (!recorded || payment.UserID != principal.UserID) {
		return PollResult{}, storage.ErrPaymentNotFound
	}

	intent, err := s.provider.GetIntent(ctx, intentID)
	if err != nil {
		return PollResult{}, fmt.Errorf("%s: %w", op, err)
	}

	userID, planID := intent.Metadata.UserID, intent.Metadata.PlanID
	if recorded {
		userID, planID = payment.UserID, payment.PlanID
		if payment.Status != intent.Status {
			if err := s.payments.UpdatePaymentStatus(ctx, intentID, intent.Status); err != nil {
				log.Error("failed to update payment status", sl.Err(err))
			}
		}
	}
	plan := s.catalog[planID]

	if intent.Status == models.PaymentStatusSucceeded {
		if userID == "" || planID == "" {
			return PollResult{}, fmt.Errorf("%s: %w", op, ErrMissingMetadata)
		}
		if _, err := s.reconciler.ReconcilePaymentSuccess(ctx, userID, planID, intent.ID); err != nil {
			s.metrics.Reconciliations.WithLabelValues(sourcePoll, "error").Inc()
			return PollResult{}, fmt.Errorf("%s: %w", op, err)
		}
		s.metrics.Reconciliations.WithLabelValues(sourcePoll, "ok").Inc()
	}

	planName := plan.Name
	if planName == "" {
		planName = intent.Metadata.PlanName
	}
	return PollResult{
		Status:   intent.Status,
		Amount:   models.MajorUnits(intent.Amount),
		Plan:     planID,
		PlanName: planName,
	}, nil
}

// HandleEvent обрабатывает событие webhook. Только payment_intent.succeeded
// меняет подписки; остальные события подтверждаются без действий.
func (s *Service) HandleEvent(ctx context.Context, event paymentprovider.Event) error {
	const op = "services.billing.HandleEvent"

	if event.Type != paymentprovider.EventPaymentSucceeded {
		s.log.Info("webhook event ignored", slog.String("type", event.Type))
		return nil
	}

	obj := event.Data.Object
	userID, planID := obj.Metadata.UserID, obj.Metadata.PlanID
	if userID == "" || planID == "" {
		payment, err := s.payments.GetPayment(ctx, obj.ID)
		if err == nil {
			userID, planID = payment.UserID, payment.PlanID
		}
	}
	if userID == "" || planID == "" {
		s.metrics.Reconciliations.WithLabelValues(sourceWebhook, "error").Inc()
		return fmt.Errorf("%s: %w", op, ErrMissingMetadata)
	}

	if err := s.payments.UpdatePaymentStatus(ctx, obj.ID, models.PaymentStatusSucceeded); err != nil &&
		!errors.Is(err, storage.ErrPaymentNotFound) {
		s.log.Error("failed to update payment status", slog.String("intent_id", obj.ID), sl.Err(err))
	}

	if _, err := s.reconciler.ReconcilePaymentSuccess(ctx, userID, planID, obj.ID); err != nil {
		s.metrics.Reconciliations.WithLabelValues(sourceWebhook, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Reconciliations.WithLabelValues(sourceWebhook, "ok").Inc()
	return nil
}

// OwnsIntent сообщает, создано ли намерение этим пользователем.
func (s *Service) OwnsIntent(ctx context.Context, userID, intentID string) (bool, error) {
	const op = "services.billing.OwnsIntent"
	ok, err := s.payments.PaymentBelongsTo(ctx, userID, intentID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}
