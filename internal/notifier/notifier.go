// Package notifier publishes kitchen state changes so boards and printers can react
// without polling.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// KitchenEvent describes one order item changing kitchen state.
type KitchenEvent struct {
	TenantID   int64     `json:"tenant_id"`
	OrderID    int64     `json:"order_id"`
	ItemID     int64     `json:"item_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoutingKey is kitchen.<tenant>.<status>, so consumers can bind per tenant or per state.
func (e KitchenEvent) RoutingKey() string {
	return fmt.Sprintf("kitchen.%d.%s", e.TenantID, e.To)
}

type Notifier interface {
	Publish(ctx context.Context, events ...KitchenEvent) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, ...KitchenEvent) error { return nil }
func (Noop) Close() error                                   { return nil }

// RabbitNotifier publishes events to a durable topic exchange.
type RabbitNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// New returns a RabbitNotifier for url, or Noop when url is empty.
func New(url, exchange string) (Notifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	return NewRabbitNotifier(url, exchange)
}

func NewRabbitNotifier(url, exchange string) (*RabbitNotifier, error) {
	if exchange == "" {
		exchange = "kitchen_topic"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends events in order. The channel is shared, so publishing is serialized.
func (n *RabbitNotifier) Publish(ctx context.Context, events ...KitchenEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode kitchen event: %w", err)
		}
		err = n.ch.PublishWithContext(ctx, n.exchange, event.RoutingKey(), false, false, amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt.UTC(),
			ContentType:  "application/json",
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("failed to publish kitchen event for item %d: %w", event.ItemID, err)
		}
	}
	return nil
}

func (n *RabbitNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
