// Package subscription реализует жизненный цикл подписок: оформление, отмену
// и сверку успешных платежей.
//
// У пользователя не может быть больше одной активной подписки. Мутации одного
// пользователя сериализуются блокировкой в процессе, а хранилище дополнительно
// блокирует строку пользователя и держит частичный уникальный индекс; нарушение
// индекса приходит как storage.ErrAlreadySubscribed.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

// ActiveCacheTTL — время жизни записи кеша активной подписки.
const ActiveCacheTTL = 5 * time.Minute

// ErrUnknownPlan возвращается для тарифа, которого нет в каталоге.
var ErrUnknownPlan = apperr.New(apperr.KindValidation, "unknown plan")

// Repository — хранилище подписок.
type Repository interface {
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id string) (models.Subscription, error)
	CreateActiveSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	ReplaceActiveSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, *models.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (models.Subscription, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// activeEntry кеширует и наличие, и отсутствие активной подписки.
type activeEntry struct {
	Subscription *models.Subscription `json:"subscription"`
}

// Service реализует бизнес-логику подписок.
type Service struct {
	repo  Repository
	cache Cache
	plans map[string]models.Plan
	log   *slog.Logger
	locks *keyedMutex
}

// NewService создаёт сервис подписок. plans — каталог допустимых тарифов.
func NewService(repo Repository, cache Cache, plans []models.Plan, log *slog.Logger) *Service {
	catalog := make(map[string]models.Plan, len(plans))
	for _, p := range plans {
		catalog[p.ID] = p
	}
	return &Service{
		repo:  repo,
		cache: cache,
		plans: catalog,
		log:   log,
		locks: newKeyedMutex(),
	}
}

func activeKey(userID string) string {
	return "subscription:active:" + userID
}

// Plan возвращает тариф из каталога.
func (s *Service) Plan(id string) (models.Plan, bool) {
	p, ok := s.plans[id]
	return p, ok
}

// Active возвращает активную подписку пользователя или nil. Ошибки кеша
// приводят к чтению из хранилища.
func (s *Service) Active(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "services.subscription.Active"
	key := activeKey(userID)

	var cached activeEntry
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return cached.Subscription, nil
	}

	// Под блокировкой пользователя мутация не может проскочить между чтением и записью кеша.
	unlock := s.locks.Lock(userID)
	defer unlock()

	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, activeEntry{Subscription: sub}, ActiveCacheTTL); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), sl.Err(err))
	}
	return sub, nil
}

// HasActive сообщает, есть ли у пользователя активная подписка.
func (s *Service) HasActive(ctx context.Context, userID string) (bool, error) {
	sub, err := s.Active(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// Subscribe оформляет подписку. Если активная подписка уже есть, возвращает storage.ErrAlreadySubscribed.
func (s *Service) Subscribe(ctx context.Context, userID, plan string) (models.Subscription, error) {
	const op = "services.subscription.Subscribe"

	if _, ok := s.plans[plan]; !ok {
		return models.Subscription{}, ErrUnknownPlan
	}

	unlock := s.locks.Lock(userID)
	defer unlock()
	defer s.invalidate(ctx, userID)

	sub, err := s.repo.CreateActiveSubscription(ctx, models.Subscription{UserID: userID, Plan: plan})
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription created",
		slog.String("user_id", userID), slog.String("subscription_id", sub.ID), slog.String("plan", plan))
	return sub, nil
}

// Cancel отменяет подписку по идентификатору. Отмена уже неактивной подписки
// возвращает её без изменений.
func (s *Service) Cancel(ctx context.Context, id string) (models.Subscription, error) {
	const op = "services.subscription.Cancel"

	existing, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.cancel(ctx, existing)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CancelOwned отменяет подписку, только если она принадлежит пользователю.
// Чужая подписка неотличима от отсутствующей.
func (s *Service) CancelOwned(ctx context.Context, userID, id string) (models.Subscription, error) {
	const op = "services.subscription.CancelOwned"

	existing, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if existing.UserID != userID {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	sub, err := s.cancel(ctx, existing)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *Service) cancel(ctx context.Context, existing models.Subscription) (models.Subscription, error) {
	unlock := s.locks.Lock(existing.UserID)
	defer unlock()
	defer s.invalidate(ctx, existing.UserID)

	sub, err := s.repo.CancelSubscription(ctx, existing.ID)
	if err != nil {
		return models.Subscription{}, err
	}
	s.log.Info("subscription cancelled",
		slog.String("user_id", sub.UserID), slog.String("subscription_id", sub.ID))
	return sub, nil
}

// ReconcilePaymentSuccess превращает подтверждённый платёж в активную подписку.
//
// Повторная доставка того же платежа ничего не меняет: если активная подписка
// уже создана этим платежом, она возвращается как есть. Иначе текущая активная
// подписка отменяется и создаётся новая.
func (s *Service) ReconcilePaymentSuccess(ctx context.Context, userID, plan, paymentRef string) (models.Subscription, error) {
	const op = "services.subscription.ReconcilePaymentSuccess"

	if _, ok := s.plans[plan]; !ok {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, ErrUnknownPlan)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()
	defer s.invalidate(ctx, userID)

	active, err := s.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if active != nil && paymentRef != "" && active.PaymentRef == paymentRef {
		s.log.Info("payment already reconciled",
			slog.String("user_id", userID), slog.String("payment_ref", paymentRef))
		return *active, nil
	}

	next := models.Subscription{UserID: userID, Plan: plan, PaymentRef: paymentRef}
	created, cancelled, err := s.repo.ReplaceActiveSubscription(ctx, next)
	if errors.Is(err, storage.ErrAlreadySubscribed) {
		// Параллельная вставка с другого экземпляра: её подписка будет отменена повторной заменой.
		s.log.Warn("concurrent subscription detected, retrying", slog.String("user_id", userID))
		created, cancelled, err = s.repo.ReplaceActiveSubscription(ctx, next)
	}
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}

	attrs := []any{
		slog.String("user_id", userID),
		slog.String("subscription_id", created.ID),
		slog.String("plan", plan),
		slog.String("payment_ref", paymentRef),
	}
	if cancelled != nil {
		attrs = append(attrs, slog.String("replaced_subscription_id", cancelled.ID))
	}
	s.log.Info("payment reconciled", attrs...)
	return created, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	key := activeKey(userID)
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}
