package domain

import "time"

// Sender identifies who authored a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a conversation with an assistant.
// InReplyTo links an assistant reply to the user message that triggered it,
// so replies can be ordered even when dispatches complete out of order.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	InReplyTo string    `json:"inReplyTo,omitempty"`
}
