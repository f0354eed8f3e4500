// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status содержит статус запроса ("OK" или "Error").
// Поле Data содержит данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — конверт ошибки. Kind — машиночитаемый тип ошибки,
// Redirect и RetryAfter заполняются для отказов шлюза доступа.
type ErrorResponse struct {
	Status     string `json:"status" example:"Error"`
	Kind       string `json:"kind" example:"validation_error"`
	Error      string `json:"error" example:"invalid request body"`
	Redirect   string `json:"redirect,omitempty" example:"/pricing"`
	RetryAfter int    `json:"retry_after,omitempty" example:"42"`
}

const (
	// StatusOK означает успешный ответ.
	StatusOK = "OK"
	// StatusError означает ответ с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse заданного типа с сообщением.
func Error(kind apperr.Kind, msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Kind:   string(kind),
		Error:  msg,
	}
}

// StatusFor отображает тип ошибки на HTTP-статус.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindAuthRequired:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindSubscriptionRequired:
		return http.StatusPaymentRequired
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Fail пишет ошибку в конверте с кодом по её типу. Текст внутренних ошибок
// и ошибок провайдера клиенту не показывается.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	resp := Error(kind, apperr.Message(err))
	if kind == apperr.KindSubscriptionRequired {
		resp.Redirect = "/pricing"
	}
	render.Status(r, StatusFor(kind))
	render.JSON(w, r, resp)
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s has invalid length", err.Field()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be positive", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Kind:   string(apperr.KindValidation),
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// Invalid пишет ответ 400 для ошибки декодирования или валидации запроса.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error(apperr.KindValidation, "invalid request body"))
}
