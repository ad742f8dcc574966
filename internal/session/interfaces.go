package session

import (
	"context"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/llm"
)

// Service defines the operations used by the daemon handlers, the MCP
// server and the CLI
type Service interface {
	// Registry
	Assistants() []domain.Assistant
	Assistant(id string) (domain.Assistant, error)
	AddAssistant(ctx context.Context, a domain.Assistant) (domain.Assistant, error)
	RenameAssistant(ctx context.Context, id, name string) error
	SetPinned(ctx context.Context, id string, pinned bool) error
	RemoveAssistant(ctx context.Context, id string) error

	// Configuration
	Global() domain.LLMConfig
	UpdateGlobal(ctx context.Context, cfg domain.LLMConfig) error
	UpdateAssistantOverride(ctx context.Context, id string, cfg domain.LLMConfig) error
	ClearAssistantOverride(ctx context.Context, id string) error
	Resolve(id string) (domain.LLMConfig, error)

	// Selection
	Select(ctx context.Context, id string) error
	Current() domain.Assistant

	// Catalog
	Providers() []llm.Provider
	Provider(id string) (llm.Provider, error)

	// Conversation
	Send(ctx context.Context, id, text string) (*Exchange, error)
	Messages(ctx context.Context, id string) ([]domain.Message, error)
	ClearMessages(ctx context.Context, id string) error
}

// Ensure Session implements Service
var _ Service = (*Session)(nil)
