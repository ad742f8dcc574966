// Package assistant owns the assistant collection and its protected default.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/storage"
	"github.com/google/uuid"
)

// Registry holds the assistants in insertion order and writes the full list
// through to storage on every mutation.
type Registry struct {
	mu         sync.RWMutex
	kv         storage.KV
	logger     *slog.Logger
	assistants []domain.Assistant
}

// NewRegistry creates a registry seeded with already loaded assistants.
// Call EnsureDefault afterwards to restore the protected default.
func NewRegistry(kv storage.KV, initial []domain.Assistant, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		kv:     kv,
		logger: logger.With("component", "registry"),
	}
	seen := make(map[string]bool, len(initial))
	for _, a := range initial {
		if a.ID == "" || seen[a.ID] {
			r.logger.Warn("dropping invalid persisted assistant", "id", a.ID)
			continue
		}
		seen[a.ID] = true
		r.assistants = append(r.assistants, a.Clone())
	}
	return r
}

// List returns a copy of all assistants, pinned first.
func (r *Registry) List() []domain.Assistant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Assistant, len(r.assistants))
	for i, a := range r.assistants {
		out[i] = a.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

// Len returns the number of assistants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assistants)
}

// Get returns the assistant with id.
func (r *Registry) Get(id string) (domain.Assistant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.Assistant{}, fmt.Errorf("assistant %q: %w", id, domain.ErrNotFound)
	}
	return r.assistants[i].Clone(), nil
}

// Add appends a new assistant. An empty ID is replaced by a generated one.
func (r *Registry) Add(ctx context.Context, a domain.Assistant) (domain.Assistant, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return domain.Assistant{}, fmt.Errorf("assistant name is required: %w", domain.ErrValidation)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(a.ID) >= 0 {
		return domain.Assistant{}, fmt.Errorf("assistant %q already exists: %w", a.ID, domain.ErrConflict)
	}

	a = a.Clone()
	r.assistants = append(r.assistants, a)
	r.logger.Info("assistant added", "assistant_id", a.ID)
	return a.Clone(), r.persist(ctx)
}

// Rename changes an assistant's display name. The default may be renamed.
func (r *Registry) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("assistant name is required: %w", domain.ErrValidation)
	}

	return r.mutate(ctx, id, func(a *domain.Assistant) error {
		a.Name = name
		return nil
	})
}

// SetPinned pins or unpins an assistant. The default cannot be pinned.
func (r *Registry) SetPinned(ctx context.Context, id string, pinned bool) error {
	if id == domain.DefaultAssistantID {
		return fmt.Errorf("pin %q: %w", id, domain.ErrRemoveProtectedEntity)
	}

	return r.mutate(ctx, id, func(a *domain.Assistant) error {
		a.Pinned = pinned
		return nil
	})
}

// SetOverride replaces the assistant's LLM override wholesale. A nil cfg
// clears it so every field inherits from the global configuration.
func (r *Registry) SetOverride(ctx context.Context, id string, cfg *domain.LLMConfig) error {
	return r.mutate(ctx, id, func(a *domain.Assistant) error {
		if cfg == nil {
			a.LLMConfig = nil
			return nil
		}
		c := cfg.Clone()
		a.LLMConfig = &c
		return nil
	})
}

// Remove deletes an assistant. The default cannot be removed.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if id == domain.DefaultAssistantID {
		return fmt.Errorf("remove %q: %w", id, domain.ErrRemoveProtectedEntity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("assistant %q: %w", id, domain.ErrNotFound)
	}

	r.assistants = append(r.assistants[:i], r.assistants[i+1:]...)
	r.logger.Info("assistant removed", "assistant_id", id)
	return r.persist(ctx)
}

// EnsureDefault prepends the default assistant when it is missing and
// persists the result. It reports whether the default had to be created.
func (r *Registry) EnsureDefault(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(domain.DefaultAssistantID) >= 0 {
		return false, nil
	}

	r.assistants = append([]domain.Assistant{domain.DefaultAssistant()}, r.assistants...)
	r.logger.Info("default assistant restored")
	return true, r.persist(ctx)
}

func (r *Registry) mutate(ctx context.Context, id string, fn func(*domain.Assistant) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("assistant %q: %w", id, domain.ErrNotFound)
	}
	if err := fn(&r.assistants[i]); err != nil {
		return err
	}
	return r.persist(ctx)
}

// indexOf must be called with mu held.
func (r *Registry) indexOf(id string) int {
	for i := range r.assistants {
		if r.assistants[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes the full list. The in-memory state stays committed when
// the write fails. Must be called with mu held.
func (r *Registry) persist(ctx context.Context) error {
	list := r.assistants
	if list == nil {
		list = []domain.Assistant{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode assistants: %w", domain.ErrPersistence, err)
	}
	if err := r.kv.Set(ctx, storage.KeyAssistants, data); err != nil {
		r.logger.Error("failed to persist assistants", "error", err)
		return fmt.Errorf("%w: save assistants: %w", domain.ErrPersistence, err)
	}
	return nil
}
