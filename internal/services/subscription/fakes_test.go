package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

// memoryRepo — хранилище подписок в памяти без уникального индекса:
// инвариант обеспечивается только сервисом.
type memoryRepo struct {
	mu      sync.Mutex
	seq     int
	subs    []models.Subscription
	failGet error
	// conflictOnce имитирует нарушение уникального индекса при первой замене.
	conflictOnce bool
}

func (r *memoryRepo) GetActiveSubscription(_ context.Context, userID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].UserID == userID && r.subs[i].Active {
			sub := r.subs[i]
			return &sub, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) GetSubscription(_ context.Context, id string) (models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Subscription{}, storage.ErrSubscriptionNotFound
}

// CreateActiveSubscription намеренно разделяет проверку и вставку, чтобы гонки
// были видны без блокировки сервиса.
func (r *memoryRepo) CreateActiveSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	active, _ := r.GetActiveSubscription(ctx, sub.UserID)
	if active != nil {
		return models.Subscription{}, storage.ErrAlreadySubscribed
	}
	time.Sleep(time.Microsecond)
	return r.insert(sub), nil
}

func (r *memoryRepo) ReplaceActiveSubscription(_ context.Context, sub models.Subscription) (models.Subscription, *models.Subscription, error) {
	r.mu.Lock()
	if r.conflictOnce {
		r.conflictOnce = false
		r.mu.Unlock()
		return models.Subscription{}, nil, storage.ErrAlreadySubscribed.With(errors.New("23505"))
	}
	var cancelled *models.Subscription
	now := time.Now().UTC()
	for i := range r.subs {
		if r.subs[i].UserID == sub.UserID && r.subs[i].Active {
			r.subs[i].Active = false
			r.subs[i].EndDate = &now
			c := r.subs[i]
			cancelled = &c
		}
	}
	r.mu.Unlock()
	return r.insert(sub), cancelled, nil
}

func (r *memoryRepo) CancelSubscription(_ context.Context, id string) (models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i].ID == id {
			if r.subs[i].Active {
				now := time.Now().UTC()
				r.subs[i].Active = false
				r.subs[i].EndDate = &now
			}
			return r.subs[i], nil
		}
	}
	return models.Subscription{}, storage.ErrSubscriptionNotFound
}

func (r *memoryRepo) insert(sub models.Subscription) models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	sub.ID = fmt.Sprintf("sub-%d", r.seq)
	sub.Active = true
	sub.StartDate = time.Now().UTC()
	sub.CreatedAt = sub.StartDate
	r.subs = append(r.subs, sub)
	return sub
}

func (r *memoryRepo) countActive(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if s.UserID == userID && s.Active {
			n++
		}
	}
	return n
}

func (r *memoryRepo) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// mapCache — кеш в памяти с сериализацией через JSON, как у redis.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return false, errors.New("redis: connection refused")
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
