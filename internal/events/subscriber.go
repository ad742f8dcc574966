package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one received event
type Handler func(ctx context.Context, ev DispatchEvent) error

// Subscriber consumes dispatch events from the queue
type Subscriber struct {
	conn     *Connection
	handler  Handler
	prefetch int
	logger   *slog.Logger
}

// NewSubscriber creates a subscriber. prefetch <= 0 means 10.
func NewSubscriber(conn *Connection, handler Handler, prefetch int, logger *slog.Logger) *Subscriber {
	if prefetch <= 0 {
		prefetch = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{conn: conn, handler: handler, prefetch: prefetch, logger: logger}
}

// Run consumes until ctx is done or the delivery channel closes
func (s *Subscriber) Run(ctx context.Context) error {
	ch := s.conn.Channel()
	if ch == nil {
		return fmt.Errorf("no open channel")
	}

	if err := ch.Qos(s.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		s.conn.Queue(),
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.process(ctx, msg)
		}
	}
}

func (s *Subscriber) process(ctx context.Context, msg amqp.Delivery) {
	ev, err := decodeEvent(msg.Body)
	if err != nil {
		s.logger.Error("failed to decode dispatch event", "error", err)
		_ = msg.Reject(false)
		return
	}

	if err := s.handler(ctx, ev); err != nil {
		s.logger.Error("dispatch event handler failed", "event_id", ev.ID, "error", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func decodeEvent(body []byte) (DispatchEvent, error) {
	var ev DispatchEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return DispatchEvent{}, err
	}
	if ev.AssistantID == "" || ev.Kind == "" {
		return DispatchEvent{}, fmt.Errorf("incomplete event")
	}
	return ev, nil
}
