package subscription

import (
	"bytes"
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

	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/active"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/finportal/internal/http/handlers/subscription/subscribe"
	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Subscribe(ctx context.Context, userID, plan string) (models.Subscription, error) {
	args := m.Called(ctx, userID, plan)
	return args.Get(0).(models.Subscription), args.Error(1)
}

func (m *ServiceMock) Active(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *ServiceMock) CancelOwned(ctx context.Context, userID, id string) (models.Subscription, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(models.Subscription), args.Error(1)
}

func newRouter(svc *ServiceMock) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := &models.Principal{UserID: "u1", Role: models.RoleDeveloper}
			next.ServeHTTP(w, req.WithContext(middlewarectx.WithPrincipal(req.Context(), p)))
		})
	})
	r.Post("/api/subscriptions", subscribe.New(log, svc).ServeHTTP)
	r.Get("/api/subscriptions/active", active.New(log, svc).ServeHTTP)
	r.Post("/api/subscriptions/{id}/cancel", cancel.New(log, svc).ServeHTTP)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		call     bool
		wantCode int
	}{
		{name: "created", body: `{"plan":"pro"}`, call: true, wantCode: http.StatusCreated},
		{name: "already subscribed", body: `{"plan":"pro"}`, call: true, err: storage.ErrAlreadySubscribed, wantCode: http.StatusConflict},
		{name: "missing plan", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "broken json", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.call {
				svc.On("Subscribe", mock.Anything, "u1", "pro").
					Return(models.Subscription{ID: "s1", UserID: "u1", Plan: "pro", Active: true}, tt.err).Once()
			}

			rec := do(newRouter(svc), http.MethodPost, "/api/subscriptions", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestActive(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Active", mock.Anything, "u1").Return(nil, nil).Once()

		rec := do(newRouter(svc), http.MethodGet, "/api/subscriptions/active", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data active.Response `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Data.Active)
		assert.Nil(t, resp.Data.Subscription)
	})

	t.Run("storage error", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Active", mock.Anything, "u1").Return(nil, errors.New("boom")).Once()

		rec := do(newRouter(svc), http.MethodGet, "/api/subscriptions/active", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCancel(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("CancelOwned", mock.Anything, "u1", "s1").Return(models.Subscription{ID: "s1", Active: false}, nil).Once()
	svc.On("CancelOwned", mock.Anything, "u1", "s2").Return(models.Subscription{}, storage.ErrSubscriptionNotFound).Once()
	h := newRouter(svc)

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/subscriptions/s1/cancel", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/api/subscriptions/s2/cancel", "").Code)
	svc.AssertExpectations(t)
}
