// Package audit асинхронно записывает журнал аудита аутентифицированных запросов.
//
// Logger принимает записи в буферизованный канал, не блокируя обработку запроса,
// и сбрасывает их пачками в Sink. При переполнении буфера запись отбрасывается
// с учётом в метрике. Ошибки Sink только логируются.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/finportal/internal/lib/sl"
	"github.com/magabrotheeeer/finportal/internal/metrics"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// Sink сохраняет пачку записей.
type Sink interface {
	Write(ctx context.Context, records []models.AuditRecord) error
}

// SinkFunc позволяет использовать функцию как Sink.
type SinkFunc func(ctx context.Context, records []models.AuditRecord) error

func (f SinkFunc) Write(ctx context.Context, records []models.AuditRecord) error {
	return f(ctx, records)
}

// Recorder принимает запись аудита. Вызов не должен блокироваться.
type Recorder interface {
	Record(rec models.AuditRecord)
}

// Options настраивает Logger.
type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// WriteTimeout ограничивает одну запись пачки в Sink.
	WriteTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// Logger — асинхронный журнал аудита.
type Logger struct {
	log     *slog.Logger
	sink    Sink
	metrics *metrics.Metrics
	opts    Options

	mu     sync.RWMutex
	closed bool
	queue  chan models.AuditRecord
	done   chan struct{}
}

// New создаёт Logger и запускает фоновую запись.
func New(log *slog.Logger, sink Sink, m *metrics.Metrics, opts Options) *Logger {
	opts.withDefaults()
	l := &Logger{
		log:     log.With(slog.String("component", "audit")),
		sink:    sink,
		metrics: m,
		opts:    opts,
		queue:   make(chan models.AuditRecord, opts.BufferSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Record ставит запись в очередь. Если буфер заполнен или журнал закрыт, запись отбрасывается.
func (l *Logger) Record(rec models.AuditRecord) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.metrics.AuditDropped.Inc()
		return
	}
	select {
	case l.queue <- rec:
		l.metrics.AuditEnqueued.Inc()
	default:
		l.metrics.AuditDropped.Inc()
		l.log.Warn("audit buffer full, record dropped",
			slog.String("user_id", rec.UserID), slog.String("endpoint", rec.Endpoint))
	}
}

// Close прекращает приём записей и дожидается записи оставшихся, но не дольше ctx.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]models.AuditRecord, 0, l.opts.BatchSize)
	for {
		select {
		case rec, ok := <-l.queue:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, rec)
			if len(batch) >= l.opts.BatchSize {
				l.flush(batch)
				batch = make([]models.AuditRecord, 0, l.opts.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = make([]models.AuditRecord, 0, l.opts.BatchSize)
			}
		}
	}
}

func (l *Logger) flush(batch []models.AuditRecord) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.WriteTimeout)
	defer cancel()

	if err := l.sink.Write(ctx, batch); err != nil {
		l.metrics.AuditFlushErrors.Inc()
		l.log.Error("failed to write audit batch", slog.Int("records", len(batch)), sl.Err(err))
	}
}
