package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// Publisher emits application events for downstream consumers (notifications, analytics).
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// EventsExchange is the topic exchange application events go to.
const EventsExchange = "application_events"

// AMQPPublisher publishes JSON events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialAMQP connects and declares the events exchange.
func DialAMQP(amqpURL string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", EventsExchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// Publish marshals payload and sends it with the given routing key.
// amqp.Channel is not safe for concurrent publishes, hence the mutex.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		metrics.EventErrors.Add(1)
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	metrics.EventsPublished.Add(1)
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		slog.Debug("amqp channel close", slog.Any("error", err))
	}
	return p.conn.Close()
}

// PublishEvent sends via the configured publisher; a nil publisher is a no-op.
// Failures are logged, never returned: events are best-effort.
func PublishEvent(ctx context.Context, routingKey string, payload any) {
	if cfg.Events == nil {
		return
	}
	if err := cfg.Events.Publish(ctx, routingKey, payload); err != nil {
		slog.Warn("event publish failed", slog.String("key", routingKey), slog.Any("error", err))
	}
}
