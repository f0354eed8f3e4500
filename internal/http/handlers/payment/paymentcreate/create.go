// Package paymentcreate обрабатывает создание платёжного намерения на тариф.
package paymentcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/services/billing"
)

// Request представляет запрос на создание платёжного намерения.
type Request struct {
	PlanID string `json:"planId" validate:"required"`
}

// Service определяет интерфейс сервиса оплаты.
type Service interface {
	CreateIntent(ctx context.Context, principal *models.Principal, planID string) (billing.IntentResult, error)
}

// Handler обрабатывает запросы на создание платёжных намерений.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис оплаты
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платёжное намерение
// @Description Создаёт у провайдера платёжное намерение на цену тарифа и возвращает client secret.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф"
// @Success 201 {object} billing.IntentResult "Намерение создано"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или неизвестный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /payments/intent [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
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
		log.Error("failed to decode request", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	res, err := h.service.CreateIntent(r.Context(), principal, req.PlanID)
	if err != nil {
		log.Error("failed to create payment intent", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("payment intent created", slog.String("intent_id", res.IntentID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
