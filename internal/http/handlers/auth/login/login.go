// Package login реализует HTTP-обработчик для запросов аутентификации пользователей.
//
// Пользователь входит по username или email. При успехе возвращается токен
// доступа, он же выставляется в cookie для браузерных страниц.
package login

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
)

// Request — структура входных данных для авторизации.
//
// Login — имя пользователя или email, пароль — минимум 6 символов.
type Request struct {
	Login    string `json:"login" validate:"required,min=3,max=254"`
	Password string `json:"password" validate:"required,min=6"`
}

// Handler обрабатывает HTTP-запросы для авторизации.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис учётных записей
	validate *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, login, password string) (auth.Result, error)
}

// New создает новый экземпляр Handler с указанными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по имени или email и паролю. Возвращает токен доступа.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} response.Response "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	res, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Info("invalid credentials", slog.String("login", req.Login))
		} else {
			log.Error("login failed", sl.Err(err))
		}
		response.Fail(w, r, err)
		return
	}

	log.Info("login success", slog.String("user_id", res.User.ID))
	middlewarectx.SetTokenCookie(w, r, res.Token, res.ExpiresAt)
	render.JSON(w, r, response.OKWithData(res))
}
