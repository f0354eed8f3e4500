// Package paymentstatus реализует синхронный опрос статуса платёжного намерения.
//
// Успешный платёж сверяется с подписками прямо в запросе, и ошибка сверки
// возвращается клиенту.
package paymentstatus

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/services/billing"
)

// Service определяет интерфейс сервиса оплаты.
type Service interface {
	PollStatus(ctx context.Context, principal *models.Principal, intentID string, forceCreate bool) (billing.PollResult, error)
}

// Handler обрабатывает GET /api/payments/intent/{id}/status.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Description Запрашивает статус намерения у провайдера. При успехе активирует подписку.
// @Description Параметр force_create учитывается только для администратора и только если разрешён настройкой.
// @Tags Payments
// @Produce json
// @Param id path string true "ID платёжного намерения"
// @Param force_create query bool false "Пропустить проверку владельца"
// @Success 200 {object} billing.PollResult
// @Failure 404 {object} response.ErrorResponse "Намерение не найдено"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /payments/intent/{id}/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	intentID := chi.URLParam(r, "id")
	if intentID == "" {
		response.Fail(w, r, apperr.New(apperr.KindValidation, "intent id is required"))
		return
	}

	force := false
	if raw := r.URL.Query().Get("force_create"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(w, r, apperr.New(apperr.KindValidation, "force_create must be a boolean"))
			return
		}
		force = v
	}

	res, err := h.service.PollStatus(r.Context(), principal, intentID, force)
	if err != nil {
		log.Error("failed to poll payment status", slog.String("intent_id", intentID), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, res)
}
