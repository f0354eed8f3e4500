// Package auditwriter переносит записи аудита из очереди RabbitMQ в PostgreSQL.
package auditwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/finportal/internal/config"
	"github.com/magabrotheeeer/finportal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/models"
	"github.com/magabrotheeeer/finportal/internal/storage/repository"
)

const prefetch = 16

// Store сохраняет пачку записей аудита.
type Store interface {
	InsertAuditRecords(ctx context.Context, records []models.AuditRecord) error
}

// Writer обрабатывает сообщения очереди аудита.
type Writer struct {
	store Store
	log   *slog.Logger
}

// NewWriter создаёт обработчик сообщений.
func NewWriter(store Store, log *slog.Logger) *Writer {
	return &Writer{store: store, log: log}
}

// Handle сохраняет пачку записей из тела сообщения. Нечитаемое сообщение
// отбрасывается без ошибки, иначе оно возвращалось бы в очередь бесконечно.
// Ошибка хранилища возвращается, и сообщение остаётся в очереди.
func (w *Writer) Handle(ctx context.Context, body []byte) error {
	const op = "auditwriter.Handle"

	var records []models.AuditRecord
	if err := json.Unmarshal(body, &records); err != nil {
		w.log.Error("malformed audit message dropped", sl.Op(op), slog.Int("size", len(body)), sl.Err(err))
		return nil
	}
	if len(records) == 0 {
		return nil
	}
	if err := w.store.InsertAuditRecords(ctx, records); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	w.log.Debug("audit records stored", sl.Op(op), slog.Int("count", len(records)))
	return nil
}

// App потребляет очередь аудита и пишет записи в PostgreSQL.
type App struct {
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	writer *Writer
	logger *slog.Logger
}

// New подключается к PostgreSQL и RabbitMQ и объявляет топологию очереди аудита.
// Схему применяет portal или portalctl migrate up; здесь она только проверяется.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.auditwriter.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.CheckDatabaseReady(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.Topology{
		Exchange:   cfg.RabbitMQ.Exchange,
		Queue:      cfg.RabbitMQ.Queue,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
	}, prefetch)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		db:     db,
		conn:   conn,
		ch:     ch,
		queue:  cfg.RabbitMQ.Queue,
		writer: NewWriter(db, logger),
		logger: logger,
	}, nil
}

// Run потребляет очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("audit writer consuming", slog.String("queue", a.queue))
	err := rabbitmq.Consume(ctx, a.logger, a.ch, a.queue, a.writer.Handle)

	a.logger.Info("audit writer shutting down gracefully")
	if cerr := a.ch.Close(); cerr != nil {
		a.logger.Error("failed to close channel", sl.Err(cerr))
	}
	if cerr := a.conn.Close(); cerr != nil {
		a.logger.Error("failed to close connection", sl.Err(cerr))
	}
	if cerr := a.db.Close(); cerr != nil {
		a.logger.Error("failed to close database", sl.Err(cerr))
	}
	return err
}
