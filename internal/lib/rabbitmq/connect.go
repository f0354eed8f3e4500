// Package rabbitmq содержит подключение к RabbitMQ, объявление топологии,
// публикацию и потребление JSON-сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Topology описывает обменник, очередь и ключ маршрутизации между ними.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// Connect подключается к брокеру, повторяя попытку retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	if retries < 1 {
		retries = 1
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		if i < retries-1 {
			time.Sleep(delay)
		}
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал и объявляет топологию: durable direct-обменник,
// durable очередь и привязку.
func SetupChannel(conn *amqp.Connection, t Topology, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}

	if err = ch.ExchangeDeclare(t.Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, t.Queue, err)
	}
	if err = ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, t.Queue, t.RoutingKey, err)
	}
	return ch, nil
}
