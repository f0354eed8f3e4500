// Package health отвечает на проверки живости и готовности.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finportal/internal/http/response"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check описывает именованную проверку зависимости.
type Check struct {
	Name   string
	Pinger Pinger
}

// Handler обрабатывает GET /healthz.
type Handler struct {
	log     *slog.Logger
	checks  []Check
	timeout time.Duration
}

// New создаёт обработчик. Каждая проверка ограничена timeout.
func New(log *slog.Logger, timeout time.Duration, checks ...Check) *Handler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Handler{
		log:     log,
		checks:  checks,
		timeout: timeout,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Tags Ops
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	status := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := c.Pinger.Ping(ctx)
		cancel()
		if err != nil {
			h.log.Warn("dependency unhealthy", slog.String("op", op), slog.String("dependency", c.Name), sl.Err(err))
			status[c.Name] = "down"
			healthy = false
			continue
		}
		status[c.Name] = "ok"
	}

	if !healthy {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Data: status})
		return
	}
	render.JSON(w, r, response.OKWithData(status))
}
