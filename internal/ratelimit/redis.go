package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Счётчик окна увеличивается атомарно; время жизни ключа задаётся при первом запросе окна.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter хранит окна в redis и разделяет их между экземплярами сервиса.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis создаёт ограничитель поверх клиента redis.
func NewRedis(client redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Allow учитывает запрос и возвращает решение.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.RedisLimiter.Allow"

	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("%s: unexpected script reply %v", op, vals)
	}

	now := l.now()
	count := int(vals[0])
	resetAt := now.Add(time.Duration(vals[1]) * time.Millisecond)

	r := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining(l.limit, count),
		ResetAt:   resetAt,
	}
	if !r.Allowed {
		r.RetryAfter = retryAfter(resetAt, now)
	}
	return r, nil
}
