package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientThrottle ограничивает частоту запросов с одного IP на открытых
// маршрутах входа и регистрации, где личность ещё неизвестна.
type ClientThrottle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

// NewClientThrottle создаёт ограничитель с rps запросов в секунду и запасом burst.
func NewClientThrottle(rps float64, burst int) *ClientThrottle {
	return &ClientThrottle{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (t *ClientThrottle) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, v := range t.visitors {
		if now.Sub(v.lastSeen) > t.idle {
			delete(t.visitors, key)
		}
	}
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware возвращает HTTP middleware ограничителя.
func (t *ClientThrottle) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !t.allow(ip, time.Now()) {
				log.Warn("too many requests",
					slog.String("ip", ip),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				w.Header().Set("Retry-After", "1")
				render.Status(r, http.StatusTooManyRequests)
				resp := response.Error(apperr.KindRateLimited, "too many requests")
				resp.RetryAfter = 1
				render.JSON(w, r, resp)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP возвращает адрес клиента. RemoteAddr уже переписан middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
