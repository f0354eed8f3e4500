package logs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/finportal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) List(ctx context.Context, userID string, p pagination.Params) (pagination.Envelope[models.AuditRecord], error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(pagination.Envelope[models.AuditRecord]), args.Error(1)
}

func serve(svc Service, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), &models.Principal{UserID: "u1"}))
	rec := httptest.NewRecorder()
	New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)
	return rec
}

func TestLogsHandler(t *testing.T) {
	t.Run("own records only", func(t *testing.T) {
		svc := new(ServiceMock)
		p := pagination.Params{Page: 1, PageSize: 5}
		svc.On("List", mock.Anything, "u1", p).
			Return(pagination.NewEnvelope([]models.AuditRecord{{UserID: "u1", Endpoint: "/api/accounts"}}, p, 1), nil).Once()

		rec := serve(svc, "/api/logs?pageSize=5&userId=someone-else")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"totalPages":1`)
		svc.AssertExpectations(t)
	})

	t.Run("bad page", func(t *testing.T) {
		rec := serve(new(ServiceMock), "/api/logs?page=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("List", mock.Anything, "u1", mock.Anything).
			Return(pagination.Envelope[models.AuditRecord]{}, errors.New("boom")).Once()

		rec := serve(svc, "/api/logs")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
