// Package events publishes dispatch outcomes to RabbitMQ for downstream
// consumers such as usage accounting.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultQueue receives one DispatchEvent per dispatch
const DefaultQueue = "concierge.dispatches"

// DispatchEvent describes the outcome of one dispatch. It never carries the
// message text or the API key.
type DispatchEvent struct {
	ID            uuid.UUID `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	AssistantID   string    `json:"assistant_id"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model,omitempty"`
	Kind          string    `json:"kind"`
	Status        int       `json:"status,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publisher delivers dispatch events
type Publisher interface {
	Publish(ctx context.Context, ev DispatchEvent) error
}

// Noop discards every event
type Noop struct{}

// Publish does nothing
func (Noop) Publish(context.Context, DispatchEvent) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []DispatchEvent
}

// Publish records ev
func (r *Recorder) Publish(_ context.Context, ev DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []DispatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DispatchEvent(nil), r.events...)
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*Recorder)(nil)
	_ Publisher = (*AMQPPublisher)(nil)
)
