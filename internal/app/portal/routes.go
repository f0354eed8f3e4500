// Package portal собирает HTTP-приложение портала: маршруты, шлюз доступа и зависимости.
package portal

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация OpenAPI-описания для /docs.
	_ "github.com/magabrotheeeer/finportal/internal/docs"
	"github.com/magabrotheeeer/finportal/internal/gate"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/admin"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/banking"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/health"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/logs"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/pages"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/pricing"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/active"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/subscribe"
	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/services/auditlog"
	"github.com/magabrotheeeer/finportal/internal/services/auth"
	banksvc "github.com/magabrotheeeer/finportal/internal/services/banking"
	"github.com/magabrotheeeer/finportal/internal/services/billing"
	"github.com/magabrotheeeer/finportal/internal/services/subscription"
)

// Пределы для открытых маршрутов, которые шлюз не ограничивает.
const (
	webhookRequestsPerMinute = 120
	credentialsRPS           = 1
	credentialsBurst         = 5
)

// Deps собирает зависимости маршрутов.
type Deps struct {
	Gate          *gate.Gate
	Auth          *auth.Service
	Subscriptions *subscription.Service
	Billing       *billing.Service
	Banking       *banksvc.Service
	AuditLog      *auditlog.Service
	Health        []health.Check
	Gatherer      prometheus.Gatherer
	WebhookSecret string
}

var errRouteNotFound = apperr.New(apperr.KindNotFound, "route not found")

// RegisterRoutes регистрирует все маршруты приложения.
//
// /healthz, /metrics и /docs обслуживаются вне шлюза. Остальные маршруты, а также
// неизвестные пути проходят через шлюз: неизвестный путь требует подписки.
func RegisterRoutes(r chi.Router, log *slog.Logger, d Deps) error {
	pagesHandler, err := pages.New(log, d.Billing, d.Subscriptions)
	if err != nil {
		return err
	}
	throttle := middlewarectx.NewClientThrottle(credentialsRPS, credentialsBurst)

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middlewarectx.RequestLogger(log),
		middleware.Recoverer,
		middleware.GetHead,
	)

	r.Get("/healthz", health.New(log, 2*time.Second, d.Health...).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)

	notFound := d.Gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, r, errRouteNotFound)
	}))
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	bank := banking.New(log, d.Banking)
	adm := admin.New(log, d.Auth, d.Subscriptions, d.AuditLog)

	r.Group(func(r chi.Router) {
		r.Use(d.Gate.Middleware)

		r.With(throttle.Middleware(log)).Post("/api/auth/register", register.New(log, d.Auth).ServeHTTP)
		r.With(throttle.Middleware(log)).Post("/api/auth/login", login.New(log, d.Auth).ServeHTTP)
		r.Get("/api/auth/me", me.New(log, d.Auth, d.Subscriptions).ServeHTTP)
		r.Get("/api/pricing", pricing.New(d.Billing).ServeHTTP)

		r.Post("/api/payments/intent", paymentcreate.New(log, d.Billing).ServeHTTP)
		r.Get("/api/payments/intent/{id}/status", paymentstatus.New(log, d.Billing).ServeHTTP)
		r.With(httprate.LimitByIP(webhookRequestsPerMinute, time.Minute)).
			Post("/api/payments/webhook", paymentwebhook.New(log, d.Billing, d.WebhookSecret).ServeHTTP)

		r.Post("/api/subscriptions", subscribe.New(log, d.Subscriptions).ServeHTTP)
		r.Get("/api/subscriptions/active", active.New(log, d.Subscriptions).ServeHTTP)
		r.Post("/api/subscriptions/{id}/cancel", cancel.New(log, d.Subscriptions).ServeHTTP)

		r.Get("/api/accounts", bank.Accounts)
		r.Get("/api/transactions", bank.Transactions)
		r.Post("/api/transfer", bank.Transfer)
		r.Get("/api/invoices", bank.Invoices)
		r.Get("/api/logs", logs.New(log, d.AuditLog).ServeHTTP)

		r.Get("/api/admin/users", adm.Users)
		r.Put("/api/admin/users/{id}/role", adm.ChangeRole)
		r.Post("/api/admin/subscriptions/{id}/cancel", adm.CancelSubscription)
		r.Get("/api/admin/logs", adm.Logs)

		r.Get("/", pagesHandler.Home)
		r.Get("/pricing", pagesHandler.Pricing)
		r.Get("/about", pagesHandler.About)
		r.Get("/login", pagesHandler.Login)
		r.Get("/dashboard", pagesHandler.Dashboard)
	})

	return nil
}
