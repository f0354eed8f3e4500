package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/finportal/internal/lib/sl"
)

// Consume читает сообщения очереди до отмены контекста или закрытия канала.
// Успешно обработанное сообщение подтверждается, при ошибке handler сообщение
// возвращается в очередь. Consume блокируется.
func Consume(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queue string, handler func(context.Context, []byte) error) error {
	const op = "rabbitmq.Consume"
	log = log.With(slog.String("op", op), slog.String("queue", queue))

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			if err := handler(ctx, d.Body); err != nil {
				log.Error("failed to handle message", sl.Err(err))
				if nackErr := d.Nack(false, true); nackErr != nil {
					log.Error("failed to nack message", sl.Err(nackErr))
				}
				continue
			}
			if ackErr := d.Ack(false); ackErr != nil {
				log.Error("failed to ack message", sl.Err(ackErr))
			}
		}
	}
}
