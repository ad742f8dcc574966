package llm

import (
	"context"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

// MessageSender defines the dispatch operation used by the session layer
type MessageSender interface {
	// Send dispatches one user message with an already resolved configuration
	Send(ctx context.Context, userMessage string, cfg domain.LLMConfig) Outcome
}

// ProviderCatalog defines the read side of the catalog used by settings
// surfaces
type ProviderCatalog interface {
	Lookup(id string) (Provider, error)
	List() []Provider
	BuildEndpoint(providerID, userURL string) (string, error)
	ValidateConfig(cfg domain.LLMConfig) error
}

// Ensure implementations satisfy the interfaces
var (
	_ MessageSender   = (*Dispatcher)(nil)
	_ ProviderCatalog = (*Catalog)(nil)
)
