// Package admin содержит обработчики административного раздела.
// Доступ к ним проверяет шлюз: маршруты помечены классом admin.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// UserService управляет учётными записями.
type UserService interface {
	Users(ctx context.Context, p pagination.Params) (pagination.Envelope[models.User], error)
	ChangeRole(ctx context.Context, actorID, userID string, role models.Role) (models.User, error)
}

// SubscriptionService отменяет подписки без проверки владельца.
type SubscriptionService interface {
	Cancel(ctx context.Context, id string) (models.Subscription, error)
}

// AuditService читает журнал аудита.
type AuditService interface {
	List(ctx context.Context, userID string, p pagination.Params) (pagination.Envelope[models.AuditRecord], error)
}

// RoleRequest описывает тело запроса смены роли.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=developer admin"`
}

// Handler объединяет административные обработчики.
type Handler struct {
	log           *slog.Logger
	users         UserService
	subscriptions SubscriptionService
	audit         AuditService
	validate      *validator.Validate
}

// New создаёт административные обработчики.
func New(log *slog.Logger, users UserService, subscriptions SubscriptionService, audit AuditService) *Handler {
	return &Handler{
		log:           log,
		users:         users,
		subscriptions: subscriptions,
		audit:         audit,
		validate:      validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Users godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce json
// @Param page query int false "Номер страницы"
// @Param pageSize query int false "Размер страницы"
// @Success 200 {object} pagination.Meta
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users [get]
// @Security BearerAuth
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users")

	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	env, err := h.users.Users(r.Context(), p)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, env)
}

// ChangeRole godoc
// @Summary Смена роли пользователя
// @Description Новая роль попадает в токен при следующем входе пользователя.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Param request body RoleRequest true "Новая роль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{id}/role [put]
// @Security BearerAuth
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.change_role")

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	user, err := h.users.ChangeRole(r.Context(), principal.UserID, chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		log.Info("role change failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// CancelSubscription godoc
// @Summary Принудительная отмена подписки
// @Tags Admin
// @Produce json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/subscriptions/{id}/cancel [post]
// @Security BearerAuth
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.cancel_subscription")

	id := chi.URLParam(r, "id")
	sub, err := h.subscriptions.Cancel(r.Context(), id)
	if err != nil {
		log.Info("forced cancellation failed", slog.String("subscription_id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	actor := ""
	if principal, ok := middlewarectx.PrincipalFrom(r.Context()); ok {
		actor = principal.UserID
	}
	log.Warn("subscription cancelled by admin",
		slog.String("actor_id", actor), slog.String("subscription_id", sub.ID), slog.String("user_id", sub.UserID))
	render.JSON(w, r, response.OKWithData(sub))
}

// Logs godoc
// @Summary Журнал аудита
// @Description Без userId возвращает записи всех пользователей.
// @Tags Admin
// @Produce json
// @Param userId query string false "Фильтр по пользователю"
// @Param page query int false "Номер страницы"
// @Param pageSize query int false "Размер страницы"
// @Success 200 {object} pagination.Meta
// @Router /admin/logs [get]
// @Security BearerAuth
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.logs")

	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	env, err := h.audit.List(r.Context(), r.URL.Query().Get("userId"), p)
	if err != nil {
		log.Error("failed to list audit records", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, env)
}
