// Package paymentwebhook принимает уведомления платёжного провайдера.
//
// Провайдеру всегда отвечаем 200 {received:true}, если подпись верна и тело
// разобрано: ошибки сверки только пишутся в журнал, чтобы провайдер не
// повторял доставку бесконечно.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/apperr"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/paymentprovider"
)

// SignatureHeader — заголовок с подписью тела запроса.
const SignatureHeader = "X-Api-Signature"

const maxBodyBytes = 1 << 20

// Service обрабатывает событие провайдера.
type Service interface {
	HandleEvent(ctx context.Context, event paymentprovider.Event) error
}

// Handler принимает webhook провайдера.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создаёт обработчик. При пустом секрете все уведомления отклоняются.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Ack — ответ провайдеру.
type Ack struct {
	Received bool `json:"received"`
}

// Sign возвращает подпись тела: base64(HMAC-SHA256(secret, body)).
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(h.webhookSecret, body)), []byte(signature))
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Принимает события провайдера. Подписку меняет только payment_intent.succeeded.
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Api-Signature header string true "base64(HMAC-SHA256(body))"
// @Param event body paymentprovider.Event true "Событие"
// @Success 200 {object} Ack
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.Fail(w, r, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	defer r.Body.Close()

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		log.Warn("invalid or missing webhook signature")
		response.Fail(w, r, apperr.New(apperr.KindValidation, "invalid signature"))
		return
	}

	var event paymentprovider.Event
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		response.Fail(w, r, apperr.New(apperr.KindValidation, "malformed event"))
		return
	}

	log = log.With(slog.String("event", event.Type), slog.String("intent_id", event.Data.Object.ID))
	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
	} else {
		log.Info("webhook processed")
	}

	render.JSON(w, r, Ack{Received: true})
}
