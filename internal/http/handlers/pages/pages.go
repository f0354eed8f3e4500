// Package pages отдаёт HTML-страницы браузерной части портала.
package pages

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Catalog отдаёт тарифы для страницы цен.
type Catalog interface {
	Plans() []models.Plan
}

// SubscriptionService отдаёт активную подписку для панели.
type SubscriptionService interface {
	Active(ctx context.Context, userID string) (*models.Subscription, error)
}

type planView struct {
	models.Plan
	Amount float64
}

// Handler рендерит страницы.
type Handler struct {
	log           *slog.Logger
	catalog       Catalog
	subscriptions SubscriptionService
	pages         map[string]*template.Template
}

// New разбирает встроенные шаблоны. Ошибка разбора означает повреждённую сборку.
func New(log *slog.Logger, catalog Catalog, subscriptions SubscriptionService) (*Handler, error) {
	const op = "handlers.pages.New"

	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "about", "login", "pricing", "dashboard"} {
		tpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		pages[name] = tpl
	}
	return &Handler{
		log:           log,
		catalog:       catalog,
		subscriptions: subscriptions,
		pages:         pages,
	}, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error("failed to render page",
			slog.String("page", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	render.HTML(w, r, buf.String())
}

// Home отдаёт главную страницу.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home", map[string]any{"Title": "Home"})
}

// About отдаёт страницу о проекте.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "about", map[string]any{"Title": "About"})
}

// Login отдаёт форму входа. Параметр next сохраняется для возврата после входа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", map[string]any{"Title": "Sign in", "Next": r.URL.Query().Get("next")})
}

// Pricing отдаёт каталог тарифов.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	plans := h.catalog.Plans()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{Plan: p, Amount: models.MajorUnits(p.Price)})
	}
	h.render(w, r, "pricing", map[string]any{"Title": "Pricing", "Plans": views})
}

// Dashboard отдаёт панель пользователя. Доступ к ней проверяет шлюз.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pages.dashboard"

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}
	sub, err := h.subscriptions.Active(r.Context(), principal.UserID)
	if err != nil {
		h.log.Error("failed to load subscription",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "dashboard", map[string]any{
		"Title":        "Dashboard",
		"User":         principal,
		"Subscription": sub,
	})
}
