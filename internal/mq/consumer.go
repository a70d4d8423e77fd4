package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"RIDESHARE_BACK-END/internal/ledger"
)

// TripEventsBinding matches every trip ledger routing key.
const TripEventsBinding = "trip.#"

// Consumer reads trip events from a durable queue bound to the exchange.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *slog.Logger
}

func NewConsumer(url, exchange, queue string, keys []string, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name, logger: logger}, nil
}

// Run hands every delivered trip event to sink until ctx is done. A failed
// delivery is requeued once, so sink must tolerate seeing an event twice; the
// event id stays the same across redeliveries. An undecodable one is dropped.
func (c *Consumer) Run(ctx context.Context, sink ledger.Publisher) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev ledger.TripEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.logger.Warn("drop undecodable trip event", "routing_key", d.RoutingKey, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := sink.Publish(ctx, ev); err != nil {
				c.logger.Warn("handle trip event failed", "event_id", ev.ID, "routing_key", d.RoutingKey, "redelivered", d.Redelivered, "error", err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
