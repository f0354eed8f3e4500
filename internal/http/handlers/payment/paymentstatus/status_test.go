package paymentstatus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/services/billing"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) PollStatus(ctx context.Context, p *models.Principal, intentID string, force bool) (billing.PollResult, error) {
	args := m.Called(ctx, p, intentID, force)
	return args.Get(0).(billing.PollResult), args.Error(1)
}

func serve(svc Service, p *models.Principal, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/payments/intent/{id}/status", New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStatusHandler(t *testing.T) {
	p := &models.Principal{UserID: "u1", Role: models.RoleDeveloper}

	t.Run("succeeded", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("PollStatus", mock.Anything, p, "pi_1", false).
			Return(billing.PollResult{Status: "succeeded", Amount: 29, Plan: "pro", PlanName: "Pro"}, nil).Once()

		rec := serve(svc, p, "/api/payments/intent/pi_1/status")

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, map[string]any{"status": "succeeded", "amount": 29.0, "plan": "pro", "planName": "Pro"}, got)
		svc.AssertExpectations(t)
	})

	t.Run("force flag passed through", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("PollStatus", mock.Anything, p, "pi_1", true).Return(billing.PollResult{Status: "processing"}, nil).Once()

		rec := serve(svc, p, "/api/payments/intent/pi_1/status?force_create=true")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("bad force flag", func(t *testing.T) {
		rec := serve(new(ServiceMock), p, "/api/payments/intent/pi_1/status?force_create=maybe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("foreign intent", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("PollStatus", mock.Anything, p, "pi_2", false).Return(billing.PollResult{}, storage.ErrPaymentNotFound).Once()

		rec := serve(svc, p, "/api/payments/intent/pi_2/status")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reconcile failure surfaces", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("PollStatus", mock.Anything, p, "pi_1", false).Return(billing.PollResult{}, errors.New("db down")).Once()

		rec := serve(svc, p, "/api/payments/intent/pi_1/status")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}
