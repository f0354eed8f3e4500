// Package me отдаёт данные текущего пользователя.
package me

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

// Service возвращает актуальную запись пользователя.
type Service interface {
	Me(ctx context.Context, userID string) (models.User, error)
}

// SubscriptionService возвращает активную подписку пользователя.
type SubscriptionService interface {
	Active(ctx context.Context, userID string) (*models.Subscription, error)
}

// Handler обрабатывает GET /api/auth/me.
type Handler struct {
	log           *slog.Logger
	service       Service
	subscriptions SubscriptionService
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service, subscriptions SubscriptionService) *Handler {
	return &Handler{log: log, service: service, subscriptions: subscriptions}
}

// Response — текущий пользователь и его активная подписка.
type Response struct {
	User         models.User          `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/me [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	user, err := h.service.Me(r.Context(), principal.UserID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	sub, err := h.subscriptions.Active(r.Context(), principal.UserID)
	if err != nil {
		log.Error("failed to load active subscription", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(Response{User: user, Subscription: sub}))
}
