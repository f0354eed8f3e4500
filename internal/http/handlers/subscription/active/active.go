// Package active отдаёт активную подписку текущего пользователя.
package active

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Service возвращает активную подписку.
type Service interface {
	Active(ctx context.Context, userID string) (*models.Subscription, error)
}

// Handler обрабатывает GET /api/subscriptions/active.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Response — активная подписка или null.
type Response struct {
	Active       bool                 `json:"active"`
	Subscription *models.Subscription `json:"subscription"`
}

// ServeHTTP godoc
// @Summary Активная подписка
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Response
// @Router /subscriptions/active [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.active"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	sub, err := h.service.Active(r.Context(), principal.UserID)
	if err != nil {
		log.Error("failed to get active subscription", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(Response{Active: sub != nil, Subscription: sub}))
}
