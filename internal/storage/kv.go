// Package storage defines the key/value persistence contract shared by all
// backends, plus an in-memory implementation used by tests and ephemeral runs.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Keys used by the session layer
const (
	KeyAssistants       = "assistants"
	KeyGlobalLLMConfig  = "globalLLMConfig"
	KeyCurrentAssistant = "currentAssistant"

	conversationPrefix = "conversation:"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("key not found")

// KV is a durable key/value store. Writes are immediate and the last writer
// to a key wins.
type KV interface {
	// Get returns the raw value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// ConversationKey returns the key holding an assistant's message history
func ConversationKey(assistantID string) string {
	return conversationPrefix + assistantID
}

// ConversationOwner returns the assistant id of a conversation key
func ConversationOwner(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, conversationPrefix)
	return id, ok && id != ""
}

// Memory is an in-memory KV
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in sorted order
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var (
	_ KV     = (*Memory)(nil)
	_ Lister = (*Memory)(nil)
)
