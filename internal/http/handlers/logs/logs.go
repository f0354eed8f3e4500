// Package logs отдаёт пользователю его собственные записи журнала аудита.
package logs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Service читает журнал аудита.
type Service interface {
	List(ctx context.Context, userID string, p pagination.Params) (pagination.Envelope[models.AuditRecord], error)
}

// Handler обрабатывает GET /api/logs.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мой журнал запросов
// @Tags Logs
// @Produce json
// @Param page query int false "Номер страницы"
// @Param pageSize query int false "Размер страницы"
// @Success 200 {object} pagination.Meta
// @Router /logs [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.logs"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	env, err := h.service.List(r.Context(), principal.UserID, p)
	if err != nil {
		log.Error("failed to list audit records", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, env)
}
