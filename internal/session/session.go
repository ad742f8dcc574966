// Package session holds the explicit per-process context: the assistant
// registry, the global LLM configuration, the current selection and the
// conversation history, all backed by one storage.KV.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/concierge/internal/assistant"
	"github.com/felixgeelhaar/concierge/internal/conversation"
	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/events"
	"github.com/felixgeelhaar/concierge/internal/llm"
	"github.com/felixgeelhaar/concierge/internal/storage"
	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a closed session
var ErrClosed = errors.New("session closed")

// Options wires a session's collaborators. KV, Catalog and Sender are required.
type Options struct {
	KV        storage.KV
	Catalog   llm.ProviderCatalog
	Sender    llm.MessageSender
	Publisher events.Publisher
	Logger    *slog.Logger

	// Now overrides the clock used for message timestamps
	Now func() time.Time
}

// Exchange is one user message and the assistant reply it produced
type Exchange struct {
	Request domain.Message `json:"request"`
	Reply   domain.Message `json:"reply"`
	Outcome llm.Outcome    `json:"outcome"`
}

// Session is the store object shared by the CLI, the daemon and the MCP server
type Session struct {
	kv            storage.KV
	catalog       llm.ProviderCatalog
	sender        llm.MessageSender
	publisher     events.Publisher
	logger        *slog.Logger
	now           func() time.Time
	registry      *assistant.Registry
	conversations *conversation.Log

	mu      sync.RWMutex
	global  domain.LLMConfig
	current string
	closed  bool
}

// Open loads persisted state and restores the default assistant. Corrupted
// state is logged and replaced by empty defaults, never fatal.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.KV == nil || opts.Catalog == nil || opts.Sender == nil {
		return nil, fmt.Errorf("session: kv, catalog and sender are required")
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.With("component", "session")
	initial, listed := loadAssistants(ctx, opts.KV, logger)

	s := &Session{
		kv:            opts.KV,
		catalog:       opts.Catalog,
		sender:        opts.Sender,
		publisher:     opts.Publisher,
		logger:        logger,
		now:           opts.Now,
		registry:      assistant.NewRegistry(opts.KV, initial, opts.Logger),
		conversations: conversation.NewLog(opts.KV, opts.Logger),
		global:        loadGlobal(ctx, opts.KV, logger),
	}

	if _, err := s.registry.EnsureDefault(ctx); err != nil {
		logger.Warn("default assistant not persisted", "error", err)
	}

	s.current = loadCurrent(ctx, opts.KV)
	if _, err := s.registry.Get(s.current); err != nil {
		s.current = domain.DefaultAssistantID
	}

	// A discarded assistant list says nothing about which histories are live
	if listed {
		s.pruneConversations(ctx)
	}

	logger.Info("session opened", "assistants", s.registry.Len(), "current", s.current)
	return s, nil
}

// Close ends the session. Collaborators passed in Options are not closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Assistants lists all assistants, pinned first
func (s *Session) Assistants() []domain.Assistant {
	return s.registry.List()
}

// Assistant returns one assistant
func (s *Session) Assistant(id string) (domain.Assistant, error) {
	return s.registry.Get(id)
}

// AddAssistant registers a new assistant
func (s *Session) AddAssistant(ctx context.Context, a domain.Assistant) (domain.Assistant, error) {
	if err := s.checkOpen(); err != nil {
		return domain.Assistant{}, err
	}
	if a.LLMConfig != nil {
		if err := s.catalog.ValidateConfig(*a.LLMConfig); err != nil {
			return domain.Assistant{}, err
		}
	}
	return s.registry.Add(ctx, a)
}

// RenameAssistant changes an assistant's name
func (s *Session) RenameAssistant(ctx context.Context, id, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.registry.Rename(ctx, id, name)
}

// SetPinned pins or unpins an assistant
func (s *Session) SetPinned(ctx context.Context, id string, pinned bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.registry.SetPinned(ctx, id, pinned)
}

// RemoveAssistant deletes an assistant together with its conversation. When
// the removed assistant was selected, the selection falls back to the default.
func (s *Session) RemoveAssistant(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}

	var errs []error
	if err := s.conversations.Clear(ctx, id); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	if s.current == id {
		s.current = domain.DefaultAssistantID
		if err := saveJSON(ctx, s.kv, storage.KeyCurrentAssistant, s.current); err != nil {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	return errors.Join(errs...)
}

// Global returns a copy of the global configuration
func (s *Session) Global() domain.LLMConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global.Clone()
}

// UpdateGlobal replaces the global configuration wholesale. Assistant
// overrides are left untouched; inherited fields change on the next Resolve.
func (s *Session) UpdateGlobal(ctx context.Context, cfg domain.LLMConfig) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.catalog.ValidateConfig(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.global = cfg.Clone()
	if err := saveJSON(ctx, s.kv, storage.KeyGlobalLLMConfig, s.global); err != nil {
		s.logger.Error("failed to persist global config", "error", err)
		return err
	}
	s.logger.Info("global config updated", "provider", s.global.ProviderValue())
	return nil
}

// UpdateAssistantOverride replaces the assistant's entire override with cfg.
// Fields absent from cfg inherit from the global configuration afterwards,
// even if the previous override defined them.
func (s *Session) UpdateAssistantOverride(ctx context.Context, id string, cfg domain.LLMConfig) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.catalog.ValidateConfig(cfg); err != nil {
		return err
	}
	return s.registry.SetOverride(ctx, id, &cfg)
}

// ClearAssistantOverride removes the assistant's override
func (s *Session) ClearAssistantOverride(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.registry.SetOverride(ctx, id, nil)
}

// Resolve returns the effective configuration for an assistant
func (s *Session) Resolve(id string) (domain.LLMConfig, error) {
	a, err := s.registry.Get(id)
	if err != nil {
		return domain.LLMConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Resolve(&a, s.global), nil
}

// Select makes id the current assistant
func (s *Session) Select(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.registry.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	return saveJSON(ctx, s.kv, storage.KeyCurrentAssistant, id)
}

// Current returns the selected assistant
func (s *Session) Current() domain.Assistant {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()

	a, err := s.registry.Get(id)
	if err != nil {
		a, _ = s.registry.Get(domain.DefaultAssistantID)
	}
	return a
}

// Providers lists the provider catalog
func (s *Session) Providers() []llm.Provider {
	return s.catalog.List()
}

// Provider looks up one provider
func (s *Session) Provider(id string) (llm.Provider, error) {
	return s.catalog.Lookup(id)
}

// Messages returns an assistant's conversation
func (s *Session) Messages(ctx context.Context, id string) ([]domain.Message, error) {
	if _, err := s.registry.Get(id); err != nil {
		return nil, err
	}
	return s.conversations.Messages(ctx, id)
}

// ClearMessages deletes an assistant's conversation
func (s *Session) ClearMessages(ctx context.Context, id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}
	return s.conversations.Clear(ctx, id)
}

// Send records text as a user message to assistant id, dispatches it with
// the assistant's resolved configuration and records the rendered outcome as
// the reply. Dispatch failures are conversation content, not errors.
func (s *Session) Send(ctx context.Context, id, text string) (*Exchange, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message is empty: %w", domain.ErrValidation)
	}
	a, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	// An exchange always runs to completion once accepted. The HTTP client
	// timeout bounds the dispatch.
	ctx = context.WithoutCancel(ctx)

	request := domain.Message{
		ID:        uuid.NewString(),
		Content:   text,
		Sender:    domain.SenderUser,
		Timestamp: s.now(),
	}
	if err := s.conversations.Append(ctx, id, request); err != nil {
		s.logger.Warn("user message not persisted", "assistant_id", id, "error", err)
	}

	s.mu.RLock()
	cfg := domain.Resolve(&a, s.global)
	s.mu.RUnlock()

	start := time.Now()
	outcome := s.sender.Send(ctx, text, cfg)
	elapsed := time.Since(start)

	reply := domain.Message{
		ID:        uuid.NewString(),
		Content:   conversation.Render(outcome),
		Sender:    domain.SenderAssistant,
		Timestamp: s.now(),
		InReplyTo: request.ID,
	}
	if err := s.conversations.Append(ctx, id, reply); err != nil {
		s.logger.Warn("reply not persisted", "assistant_id", id, "error", err)
	}

	if err := outcome.Err(); err != nil {
		s.logger.Warn("dispatch failed",
			"assistant_id", id,
			"provider", cfg.ProviderValue(),
			"kind", outcome.Kind,
			"status", outcome.Status,
			"duration", elapsed,
			"error", err,
		)
	} else {
		s.logger.Info("message dispatched",
			"assistant_id", id,
			"provider", cfg.ProviderValue(),
			"duration", elapsed,
		)
	}

	s.publish(ctx, events.DispatchEvent{
		ID:            uuid.New(),
		CorrelationID: request.ID,
		AssistantID:   id,
		Provider:      cfg.ProviderValue(),
		Model:         cfg.ModelValue(),
		Kind:          string(outcome.Kind),
		Status:        outcome.Status,
		DurationMS:    elapsed.Milliseconds(),
		CreatedAt:     reply.Timestamp,
	})

	return &Exchange{Request: request, Reply: reply, Outcome: outcome}, nil
}

func (s *Session) publish(ctx context.Context, ev events.DispatchEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish dispatch event", "assistant_id", ev.AssistantID, "error", err)
	}
}
