// Package ratelimit ограничивает число запросов одного пользователя в фиксированном окне.
//
// Окно создаётся при первом запросе и сбрасывается, когда текущее время строго
// больше времени сброса. Реализации взаимозаменяемы: MemoryLimiter хранит окна
// в памяти процесса, RedisLimiter разделяет их между экземплярами.
package ratelimit

import (
	"context"
	"math"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// Result описывает решение ограничителя для одного запроса.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter — через сколько секунд имеет смысл повторить запрос. Ноль, если запрос допущен.
	RetryAfter int
}

// Limiter принимает решение по ключу (идентификатору пользователя).
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// retryAfter округляет время до сброса окна вверх до целых секунд, но не меньше секунды.
func retryAfter(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}
