// Package cancel реализует отмену собственной подписки пользователем.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Service отменяет подписку, принадлежащую пользователю.
type Service interface {
	CancelOwned(ctx context.Context, userID, id string) (models.Subscription, error)
}

// Handler обрабатывает POST /api/subscriptions/{id}/cancel.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Tags Subscriptions
// @Produce json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /subscriptions/{id}/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	id := chi.URLParam(r, "id")
	sub, err := h.service.CancelOwned(r.Context(), principal.UserID, id)
	if err != nil {
		log.Error("failed to cancel subscription", slog.String("subscription_id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("subscription cancelled", slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.OKWithData(sub))
}
