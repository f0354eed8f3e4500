package login

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
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, login, password string) (auth.Result, error) {
	args := m.Called(ctx, login, password)
	return args.Get(0).(auth.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	expires := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		mockResp       *auth.Result
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name:        "valid login",
			requestBody: Request{Login: "user1", Password: "password123"},
			mockResp: &auth.Result{
				Token:     "tok",
				ExpiresAt: expires,
				User:      models.User{ID: "u1", Username: "user1", Role: models.RoleDeveloper},
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - missing password",
			requestBody:    Request{Login: "user1"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Password is a required field",
			wantStatus:     "Error",
		},
		{
			name:           "wrong password",
			requestBody:    Request{Login: "user1", Password: "password123"},
			mockResp:       &auth.Result{},
			mockErr:        auth.ErrInvalidCredentials,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid credentials",
			wantStatus:     "Error",
		},
		{
			name:           "storage error is hidden",
			requestBody:    Request{Login: "user1", Password: "password123"},
			mockResp:       &auth.Result{},
			mockErr:        errors.New("pq: too many connections"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if tt.mockResp != nil {
				authMock.On("Login", mock.Anything, tt.requestBody.(Request).Login, tt.requestBody.(Request).Password).
					Return(*tt.mockResp, tt.mockErr).Once()
			}

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			New(newNoopLogger(), authMock).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp["status"])
			if tt.wantError != "" {
				assert.Contains(t, resp["error"], tt.wantError)
			} else {
				data := resp["data"].(map[string]any)
				assert.Equal(t, "tok", data["token"])
				require.Len(t, rec.Result().Cookies(), 1)
			}
			authMock.AssertExpectations(t)
		})
	}
}
