package gate

import (
	"sync"
	"time"
)

// BypassParam — параметр запроса, которым браузер возвращается со страницы оплаты.
const BypassParam = "payment_intent"

// consumedSet помнит использованные пары (пользователь, намерение), чтобы
// разовый пропуск нельзя было повторить. Записи живут ttl.
type consumedSet struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]time.Time
	lastSweep time.Time
}

func newConsumedSet(ttl time.Duration) *consumedSet {
	return &consumedSet{ttl: ttl, entries: make(map[string]time.Time)}
}

// consume отмечает пару использованной. false, если пара уже была использована.
func (c *consumedSet) consume(userID, intentID string, now time.Time) bool {
	key := userID + "\x00" + intentID

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > c.ttl {
		for k, at := range c.entries {
			if now.Sub(at) > c.ttl {
				delete(c.entries, k)
			}
		}
		c.lastSweep = now
	}
	if at, ok := c.entries[key]; ok && now.Sub(at) <= c.ttl {
		return false
	}
	c.entries[key] = now
	return true
}

func (c *consumedSet) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
