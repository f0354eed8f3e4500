// Package banking содержит обработчики платных банковских маршрутов:
// счета, операции, перевод и счета на оплату.
package banking

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
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	banksvc "github.com/magabrotheeeer/finportal/internal/services/banking"
)

// Service описывает источник банковских данных.
type Service interface {
	Accounts(ctx context.Context, userID string) []banksvc.Account
	Transactions(ctx context.Context, userID string, p pagination.Params) pagination.Envelope[banksvc.Transaction]
	Invoices(ctx context.Context, userID string) []banksvc.Invoice
	Transfer(ctx context.Context, userID string, req banksvc.TransferRequest) (banksvc.TransferResult, error)
}

// Handler объединяет банковские обработчики.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчики.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Accounts godoc
// @Summary Счета пользователя
// @Tags Banking
// @Produce json
// @Success 200 {object} response.Response
// @Failure 402 {object} response.ErrorResponse "Нужна подписка"
// @Router /accounts [get]
// @Security BearerAuth
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}
	render.JSON(w, r, response.OKWithData(h.service.Accounts(r.Context(), principal.UserID)))
}

// Transactions godoc
// @Summary Операции по счетам
// @Tags Banking
// @Produce json
// @Param page query int false "Номер страницы" minimum(1)
// @Param pageSize query int false "Размер страницы" minimum(1) maximum(100)
// @Success 200 {object} pagination.Meta
// @Failure 400 {object} response.ErrorResponse "Неверные параметры страницы"
// @Router /transactions [get]
// @Security BearerAuth
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}
	p, err := pagination.Parse(r.URL.Query())
	if err != nil {
		h.logger(r, "handlers.banking.transactions").Info("invalid pagination", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, h.service.Transactions(r.Context(), principal.UserID, p))
}

// Invoices godoc
// @Summary Выставленные счета
// @Tags Banking
// @Produce json
// @Success 200 {object} response.Response
// @Router /invoices [get]
// @Security BearerAuth
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}
	render.JSON(w, r, response.OKWithData(h.service.Invoices(r.Context(), principal.UserID)))
}

// Transfer godoc
// @Summary Перевод между счетами
// @Description Проверяет параметры и возвращает подтверждение. Балансы не меняются.
// @Tags Banking
// @Accept json
// @Produce json
// @Param request body banksvc.TransferRequest true "Перевод"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /transfer [post]
// @Security BearerAuth
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.banking.transfer")

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		response.Fail(w, r, middlewarectx.ErrNoPrincipal)
		return
	}

	var req banksvc.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	res, err := h.service.Transfer(r.Context(), principal.UserID, req)
	if err != nil {
		log.Info("transfer rejected", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}
