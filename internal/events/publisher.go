package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AMQPPublisher publishes dispatch events to a RabbitMQ queue
type AMQPPublisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewAMQPPublisher creates a publisher over an open connection
func NewAMQPPublisher(conn *Connection, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{conn: conn, logger: logger}
}

// Publish sends ev, filling in ID and CreatedAt when unset
func (p *AMQPPublisher) Publish(ctx context.Context, ev DispatchEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish dispatch event: %w", err)
	}

	p.logger.Debug("published dispatch event",
		"event_id", ev.ID,
		"assistant_id", ev.AssistantID,
		"kind", ev.Kind,
	)
	return nil
}

// Close closes the underlying connection
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
