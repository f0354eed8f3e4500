package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage/repository"
)

type storeFunc func(ctx context.Context, f repository.AuditFilter) ([]models.AuditRecord, int, error)

func (fn storeFunc) ListAuditRecords(ctx context.Context, f repository.AuditFilter) ([]models.AuditRecord, int, error) {
	return fn(ctx, f)
}

func TestList(t *testing.T) {
	var got repository.AuditFilter
	svc := NewService(storeFunc(func(_ context.Context, f repository.AuditFilter) ([]models.AuditRecord, int, error) {
		got = f
		return []models.AuditRecord{{UserID: "u1"}}, 15, nil
	}))

	env, err := svc.List(context.Background(), "u1", pagination.Params{Page: 2, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, repository.AuditFilter{UserID: "u1", Limit: 10, Offset: 10}, got)
	assert.Len(t, env.Data, 1)
	assert.Equal(t, pagination.Meta{Page: 2, PageSize: 10, Total: 15, TotalPages: 2}, env.Pagination)
}

func TestList_Error(t *testing.T) {
	svc := NewService(storeFunc(func(context.Context, repository.AuditFilter) ([]models.AuditRecord, int, error) {
		return nil, 0, errors.New("boom")
	}))

	_, err := svc.List(context.Background(), "", pagination.Params{Page: 1, PageSize: 20})
	assert.Error(t, err)
}
