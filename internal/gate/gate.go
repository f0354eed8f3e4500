// Package gate реализует шлюз доступа: единую точку, через которую проходит
// каждый запрос к порталу.
//
// Порядок проверок: классификация маршрута, аутентификация по токену, проверка
// роли или подписки, ограничитель частоты, обработчик, запись в журнал аудита.
// Отказ на любом шаге после аутентификации тоже попадает в журнал.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/audit"
	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/jwt"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/metrics"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/ratelimit"
)

// DefaultBypassTTL задаёт, сколько помнится использованный разовый пропуск.
const DefaultBypassTTL = 24 * time.Hour

var (
	errMissingToken         = apperr.New(apperr.KindAuthRequired, "missing or invalid authorization header")
	errForbidden            = apperr.New(apperr.KindForbidden, "admin role required")
	errSubscriptionRequired = apperr.New(apperr.KindSubscriptionRequired, "active subscription required")
	errRateLimited          = apperr.New(apperr.KindRateLimited, "rate limit exceeded")
	errInternal             = apperr.New(apperr.KindInternal, "internal error")
)

// Исходы решений шлюза для метрик.
const (
	outcomePublic          = "public"
	outcomeUnauthenticated = "unauthenticated"
	outcomeForbidden       = "forbidden"
	outcomeNoSubscription  = "subscription_required"
	outcomeBypass          = "bypass"
	outcomeRateLimited     = "rate_limited"
	outcomeAdmitted        = "admitted"
	outcomeError           = "error"
)

// TokenVerifier проверяет токен доступа.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// SubscriptionChecker сообщает, есть ли у пользователя активная подписка.
type SubscriptionChecker interface {
	HasActive(ctx context.Context, userID string) (bool, error)
}

// BypassVerifier проверяет, что платёжное намерение создано этим пользователем.
type BypassVerifier interface {
	OwnsIntent(ctx context.Context, userID, intentID string) (bool, error)
}

// Config собирает зависимости шлюза.
type Config struct {
	Table         *Table
	Tokens        TokenVerifier
	Subscriptions SubscriptionChecker
	Limiter       ratelimit.Limiter
	Audit         audit.Recorder
	// Bypass может быть nil: тогда разовый пропуск отключён.
	Bypass    BypassVerifier
	BypassTTL time.Duration
	Metrics   *metrics.Metrics
	Log       *slog.Logger
	Now       func() time.Time
}

// Gate — шлюз доступа.
type Gate struct {
	table         *Table
	tokens        TokenVerifier
	subscriptions SubscriptionChecker
	limiter       ratelimit.Limiter
	audit         audit.Recorder
	bypass        BypassVerifier
	consumed      *consumedSet
	metrics       *metrics.Metrics
	log           *slog.Logger
	now           func() time.Time
}

// New создаёт шлюз.
func New(cfg Config) *Gate {
	if cfg.Table == nil {
		cfg.Table = MustTable(DefaultRoutes())
	}
	if cfg.BypassTTL <= 0 {
		cfg.BypassTTL = DefaultBypassTTL
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gate{
		table:         cfg.Table,
		tokens:        cfg.Tokens,
		subscriptions: cfg.Subscriptions,
		limiter:       cfg.Limiter,
		audit:         cfg.Audit,
		bypass:        cfg.Bypass,
		consumed:      newConsumedSet(cfg.BypassTTL),
		metrics:       cfg.Metrics,
		log:           cfg.Log,
		now:           cfg.Now,
	}
}

// Middleware возвращает HTTP middleware шлюза.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "gate.Middleware"

		access := g.table.Classify(r.Method, r.URL.Path)
		surface := SurfaceOf(r.URL.Path)
		log := g.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("access", string(access)),
		)

		if access == AccessPublic {
			g.decide(access, outcomePublic)
			next.ServeHTTP(w, r)
			return
		}

		principal, err := g.authenticate(r)
		if err != nil {
			log.Info("request not authenticated", slog.String("path", r.URL.Path), sl.Err(err))
			g.decide(access, outcomeUnauthenticated)
			g.deny(w, r, surface, err, 0)
			return
		}
		log = log.With(slog.String("user_id", principal.UserID))

		start := g.now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			p := recover()
			if p != nil {
				status = http.StatusInternalServerError
			}
			g.record(r, principal, status, start)
			if p != nil {
				panic(p)
			}
		}()

		ctx := middlewarectx.WithPrincipal(r.Context(), principal)
		r = r.WithContext(ctx)

		outcome := outcomeAdmitted
		switch access {
		case AccessAdmin:
			if !principal.IsAdmin() {
				log.Warn("admin route denied")
				g.decide(access, outcomeForbidden)
				g.deny(ww, r, surface, errForbidden, 0)
				return
			}
		case AccessGated:
			if principal.IsAdmin() {
				break
			}
			if intentID := r.URL.Query().Get(BypassParam); intentID != "" && surface == SurfaceBrowser && g.tryBypass(ctx, log, principal, intentID) {
				outcome = outcomeBypass
				r = stripBypassParam(r)
				ww.Header().Set("Cache-Control", "no-store")
				break
			}
			ok, err := g.subscriptions.HasActive(ctx, principal.UserID)
			if err != nil {
				log.Error("failed to check subscription", sl.Err(err))
				g.decide(access, outcomeError)
				g.deny(ww, r, surface, errInternal.With(err), 0)
				return
			}
			if !ok {
				g.decide(access, outcomeNoSubscription)
				g.deny(ww, r, surface, errSubscriptionRequired, 0)
				return
			}
		}

		if !g.allow(ctx, log, ww, r, surface, principal) {
			g.decide(access, outcomeRateLimited)
			return
		}

		g.decide(access, outcome)
		next.ServeHTTP(ww, r)
	})
}

func (g *Gate) authenticate(r *http.Request) (*models.Principal, error) {
	token := ""
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return nil, errMissingToken
		}
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if SurfaceOf(r.URL.Path) == SurfaceBrowser {
		if c, err := r.Cookie(middlewarectx.TokenCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil, errMissingToken
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

// tryBypass пропускает браузерный запрос без подписки один раз на пару
// (пользователь, намерение), если намерение создано этим пользователем.
func (g *Gate) tryBypass(ctx context.Context, log *slog.Logger, principal *models.Principal, intentID string) bool {
	if g.bypass == nil {
		return false
	}
	owns, err := g.bypass.OwnsIntent(ctx, principal.UserID, intentID)
	if err != nil {
		log.Error("failed to verify bypass intent", slog.String("intent_id", intentID), sl.Err(err))
		return false
	}
	if !owns {
		log.Warn("bypass intent does not belong to user", slog.String("intent_id", intentID))
		return false
	}
	if !g.consumed.consume(principal.UserID, intentID, g.now()) {
		log.Info("bypass already used", slog.String("intent_id", intentID))
		return false
	}
	log.Info("one-shot bypass admitted", slog.String("intent_id", intentID))
	return true
}

// allow применяет ограничитель. Ошибка хранилища ограничителя пропускает запрос.
func (g *Gate) allow(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, surface Surface, principal *models.Principal) bool {
	res, err := g.limiter.Allow(ctx, "user:"+principal.UserID)
	if err != nil {
		g.metrics.LimiterErrors.Inc()
		log.Error("rate limiter failed, admitting request", sl.Err(err))
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if res.Allowed {
		return true
	}

	g.metrics.RateLimited.Inc()
	log.Warn("rate limit exceeded", slog.Int("retry_after", res.RetryAfter))
	g.deny(w, r, surface, errRateLimited, res.RetryAfter)
	return false
}

// deny пишет отказ в форме, зависящей от поверхности запроса.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, surface Surface, err error, retryAfter int) {
	kind := apperr.KindOf(err)

	if surface == SurfaceBrowser {
		switch kind {
		case apperr.KindAuthRequired:
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		case apperr.KindSubscriptionRequired:
			http.Redirect(w, r, "/pricing", http.StatusFound)
			return
		}
	}

	if kind == apperr.KindRateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		resp := response.Error(kind, apperr.Message(err))
		resp.RetryAfter = retryAfter
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, resp)
		return
	}
	response.Fail(w, r, err)
}

func (g *Gate) record(r *http.Request, principal *models.Principal, status int, start time.Time) {
	if status == 0 {
		status = http.StatusOK
	}
	elapsed := g.now().Sub(start)
	g.metrics.RequestDuration.WithLabelValues(r.Method, strconv.Itoa(status)).Observe(elapsed.Seconds())
	g.audit.Record(models.AuditRecord{
		UserID:         principal.UserID,
		Endpoint:       r.URL.Path,
		Method:         r.Method,
		StatusCode:     status,
		ResponseTimeMs: elapsed.Milliseconds(),
		Timestamp:      start.UTC(),
	})
}

func (g *Gate) decide(access Access, outcome string) {
	g.metrics.GateDecisions.WithLabelValues(string(access), outcome).Inc()
}

func stripBypassParam(r *http.Request) *http.Request {
	u := *r.URL
	q := u.Query()
	q.Del(BypassParam)
	u.RawQuery = q.Encode()
	r.URL = &u
	r.RequestURI = u.RequestURI()
	return r
}

// String описывает маршрут для журналов и ошибок.
func (r Route) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Method, r.Pattern, r.Access)
}
