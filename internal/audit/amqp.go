package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/finportal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/finportal/internal/models"
)

// AMQPSink публикует пачку записей одним JSON-сообщением в обменник RabbitMQ.
// Сообщения читает cmd/audit-writer и сохраняет их в PostgreSQL.
type AMQPSink struct {
	mu         sync.Mutex
	ch         rabbitmq.Publisher
	exchange   string
	routingKey string
}

// NewAMQPSink создаёт приёмник поверх канала RabbitMQ.
func NewAMQPSink(ch rabbitmq.Publisher, exchange, routingKey string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange, routingKey: routingKey}
}

func (s *AMQPSink) Write(ctx context.Context, records []models.AuditRecord) error {
	const op = "audit.AMQPSink.Write"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := rabbitmq.PublishJSON(s.ch, s.exchange, s.routingKey, records); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
