// Package subscribe реализует прямое оформление подписки.
package subscribe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

// Request — тариф подписки.
type Request struct {
	Plan string `json:"plan" validate:"required"`
}

// Service оформляет подписку.
type Service interface {
	Subscribe(ctx context.Context, userID, plan string) (models.Subscription, error)
}

// Handler обрабатывает POST /api/subscriptions.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body Request true "Тариф"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неизвестный тариф"
// @Failure 409 {object} response.ErrorResponse "Активная подписка уже есть"
// @Router /subscriptions [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	sub, err := h.service.Subscribe(r.Context(), principal.UserID, req.Plan)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadySubscribed) {
			log.Info("user already subscribed", slog.String("user_id", principal.UserID))
		} else {
			log.Error("failed to subscribe", sl.Err(err))
		}
		response.Fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}
