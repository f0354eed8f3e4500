// Package register реализует HTTP-обработчик регистрации пользователя.
package register

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
	"github.com/magabrotheeeer/finportal/internal/services/auth"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

// Request — входные данные для регистрации.
type Request struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

// Service описывает регистрацию в сервисе учётных записей.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Result, error)
}

// Handler обрабатывает регистрацию.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик регистрации.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя с ролью developer и возвращает токен доступа.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return
	}

	res, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Info("user already exists", slog.String("username", req.Username))
		} else {
			log.Error("registration failed", sl.Err(err))
		}
		response.Fail(w, r, err)
		return
	}

	middlewarectx.SetTokenCookie(w, r, res.Token, res.ExpiresAt)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(res))
}
