package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter хранит окна в памяти процесса. Состояние теряется при перезапуске.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// MemoryOption настраивает MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemory создаёт ограничитель на limit запросов за window.
func NewMemory(limit int, windowLen time.Duration, opts ...MemoryOption) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	l := &MemoryLimiter{
		limit:   limit,
		window:  windowLen,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow учитывает запрос и возвращает решение.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return l.result(true, w, now), nil
	}
	if w.count < l.limit {
		w.count++
		return l.result(true, w, now), nil
	}
	return l.result(false, w, now), nil
}

func (l *MemoryLimiter) result(allowed bool, w *window, now time.Time) Result {
	r := Result{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining(l.limit, w.count),
		ResetAt:   w.resetAt,
	}
	if !allowed {
		r.RetryAfter = retryAfter(w.resetAt, now)
	}
	return r
}

// Sweep удаляет окна, время сброса которых прошло. Возвращает число удалённых окон.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len возвращает число отслеживаемых окон.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// RunJanitor периодически вызывает Sweep до отмены контекста.
func (l *MemoryLimiter) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
