// Package auditlog отдаёт записи журнала аудита постранично.
package auditlog

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/finportal/internal/lib/pagination"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage/repository"
)

// Store читает журнал аудита.
type Store interface {
	ListAuditRecords(ctx context.Context, f repository.AuditFilter) ([]models.AuditRecord, int, error)
}

// Service — чтение журнала аудита.
type Service struct {
	store Store
}

// NewService создаёт сервис.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List возвращает страницу записей. Пустой userID означает все записи.
func (s *Service) List(ctx context.Context, userID string, p pagination.Params) (pagination.Envelope[models.AuditRecord], error) {
	const op = "services.auditlog.List"

	records, total, err := s.store.ListAuditRecords(ctx, repository.AuditFilter{
		UserID: userID,
		Limit:  p.Limit(),
		Offset: p.Offset(),
	})
	if err != nil {
		return pagination.Envelope[models.AuditRecord]{}, fmt.Errorf("%s: %w", op, err)
	}
	return pagination.NewEnvelope(records, p, total), nil
}
