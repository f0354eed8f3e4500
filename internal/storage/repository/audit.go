package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/finportal/internal/models"
)

// AuditFilter ограничивает выборку журнала аудита. Пустой UserID означает всех пользователей.
type AuditFilter struct {
	UserID string
	Limit  int
	Offset int
}

// InsertAuditRecords сохраняет пачку записей аудита одним запросом.
func (s *Storage) InsertAuditRecords(ctx context.Context, records []models.AuditRecord) error {
	const op = "storage.InsertAuditRecords"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO audit_logs (user_id, endpoint, method, status_code, response_time_ms, timestamp) VALUES `)
	args := make([]any, 0, len(records)*6)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 6
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, r.UserID, r.Endpoint, r.Method, r.StatusCode, r.ResponseTimeMs, r.Timestamp)
	}

	if _, err := s.DB.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAuditRecords возвращает страницу записей аудита, начиная с последних, и их общее количество.
func (s *Storage) ListAuditRecords(ctx context.Context, f AuditFilter) ([]models.AuditRecord, int, error) {
	const op = "storage.ListAuditRecords"
	if err := ctxDone(ctx, op); err != nil {
		return nil, 0, err
	}

	where := ""
	args := []any{}
	if f.UserID != "" {
		where = ` WHERE user_id::text = $1`
		args = append(args, f.UserID)
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT user_id, endpoint, method, status_code, response_time_ms, timestamp
			  FROM audit_logs%s
			  ORDER BY timestamp DESC, id DESC
			  LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := s.DB.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]models.AuditRecord, 0, f.Limit)
	for rows.Next() {
		var r models.AuditRecord
		if err := rows.Scan(&r.UserID, &r.Endpoint, &r.Method, &r.StatusCode, &r.ResponseTimeMs, &r.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return records, total, nil
}
