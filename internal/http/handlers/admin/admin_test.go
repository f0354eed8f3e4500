package admin

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage"
)

type UserServiceMock struct {
	mock.Mock
}

func (m *UserServiceMock) Users(ctx context.Context, p pagination.Params) (pagination.Envelope[models.User], error) {
	args := m.Called(ctx, p)
	return args.Get(0).(pagination.Envelope[models.User]), args.Error(1)
}

func (m *UserServiceMock) ChangeRole(ctx context.Context, actorID, userID string, role models.Role) (models.User, error) {
	args := m.Called(ctx, actorID, userID, role)
	return args.Get(0).(models.User), args.Error(1)
}

type SubscriptionServiceMock struct {
	mock.Mock
}

func (m *SubscriptionServiceMock) Cancel(ctx context.Context, id string) (models.Subscription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Subscription), args.Error(1)
}

type AuditServiceMock struct {
	mock.Mock
}

func (m *AuditServiceMock) List(ctx context.Context, userID string, p pagination.Params) (pagination.Envelope[models.AuditRecord], error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(pagination.Envelope[models.AuditRecord]), args.Error(1)
}

type fixture struct {
	users  *UserServiceMock
	subs   *SubscriptionServiceMock
	audit  *AuditServiceMock
	router http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		users: new(UserServiceMock),
		subs:  new(SubscriptionServiceMock),
		audit: new(AuditServiceMock),
	}
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), f.users, f.subs, f.audit)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := &models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
			next.ServeHTTP(w, req.WithContext(middlewarectx.WithPrincipal(req.Context(), p)))
		})
	})
	r.Get("/api/admin/users", h.Users)
	r.Put("/api/admin/users/{id}/role", h.ChangeRole)
	r.Post("/api/admin/subscriptions/{id}/cancel", h.CancelSubscription)
	r.Get("/api/admin/logs", h.Logs)
	f.router = r
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func TestUsers(t *testing.T) {
	f := newFixture()
	p := pagination.Params{Page: 1, PageSize: 20}
	f.users.On("Users", mock.Anything, p).
		Return(pagination.NewEnvelope([]models.User{{ID: "u1", Username: "alice", PasswordHash: "secret"}}, p, 1), nil).Once()

	rec := f.do(http.MethodGet, "/api/admin/users", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "secret")
	f.users.AssertExpectations(t)
}

func TestChangeRole(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(*UserServiceMock)
		wantCode int
	}{
		{
			name: "promote",
			body: `{"role":"admin"}`,
			setup: func(m *UserServiceMock) {
				m.On("ChangeRole", mock.Anything, "admin-1", "u1", models.RoleAdmin).
					Return(models.User{ID: "u1", Role: models.RoleAdmin}, nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown role",
			body:     `{"role":"root"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing role",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			body: `{"role":"developer"}`,
			setup: func(m *UserServiceMock) {
				m.On("ChangeRole", mock.Anything, "admin-1", "u1", models.RoleDeveloper).
					Return(models.User{}, storage.ErrUserNotFound).Once()
			},
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f.users)
			}

			rec := f.do(http.MethodPut, "/api/admin/users/u1/role", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			f.users.AssertExpectations(t)
		})
	}
}

func TestCancelSubscription(t *testing.T) {
	t.Run("any owner", func(t *testing.T) {
		f := newFixture()
		f.subs.On("Cancel", mock.Anything, "s1").
			Return(models.Subscription{ID: "s1", UserID: "u9"}, nil).Once()

		rec := f.do(http.MethodPost, "/api/admin/subscriptions/s1/cancel", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"userId":"u9"`)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		f.subs.On("Cancel", mock.Anything, "s2").
			Return(models.Subscription{}, storage.ErrSubscriptionNotFound).Once()

		rec := f.do(http.MethodPost, "/api/admin/subscriptions/s2/cancel", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLogs_Filter(t *testing.T) {
	f := newFixture()
	p := pagination.Params{Page: 2, PageSize: 10}
	f.audit.On("List", mock.Anything, "u1", p).
		Return(pagination.NewEnvelope[models.AuditRecord](nil, p, 0), nil).Once()
	f.audit.On("List", mock.Anything, "", pagination.Params{Page: 1, PageSize: 20}).
		Return(pagination.NewEnvelope[models.AuditRecord](nil, pagination.Params{Page: 1, PageSize: 20}, 0), nil).Once()

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/logs?userId=u1&page=2&pageSize=10", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/logs", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/logs?pageSize=500", "").Code)
	f.audit.AssertExpectations(t)
}
