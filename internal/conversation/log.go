// Package conversation persists per-assistant message history and renders
// dispatch outcomes as conversation text.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/storage"
)

// Log stores each assistant's messages under storage.ConversationKey.
type Log struct {
	mu     sync.Mutex
	kv     storage.KV
	logger *slog.Logger
}

// NewLog creates a conversation log over kv
func NewLog(kv storage.KV, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{kv: kv, logger: logger.With("component", "conversation")}
}

// Append adds messages to an assistant's history
func (l *Log) Append(ctx context.Context, assistantID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.load(ctx, assistantID)
	if err != nil {
		return err
	}
	history = append(history, msgs...)
	return l.save(ctx, assistantID, history)
}

// Messages returns an assistant's history ordered by timestamp
func (l *Log) Messages(ctx context.Context, assistantID string) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.load(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history, nil
}

// Clear deletes an assistant's history
func (l *Log) Clear(ctx context.Context, assistantID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Delete(ctx, storage.ConversationKey(assistantID)); err != nil {
		return fmt.Errorf("%w: clear conversation: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (l *Log) load(ctx context.Context, assistantID string) ([]domain.Message, error) {
	key := storage.ConversationKey(assistantID)
	data, err := l.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load conversation: %w", domain.ErrPersistence, err)
	}

	var history []domain.Message
	if err := json.Unmarshal(data, &history); err != nil {
		l.logger.Warn("discarding malformed conversation", "key", key, "error", err)
		return []domain.Message{}, nil
	}
	return history, nil
}

func (l *Log) save(ctx context.Context, assistantID string, history []domain.Message) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%w: encode conversation: %w", domain.ErrPersistence, err)
	}
	if err := l.kv.Set(ctx, storage.ConversationKey(assistantID), data); err != nil {
		l.logger.Error("failed to persist conversation", "assistant_id", assistantID, "error", err)
		return fmt.Errorf("%w: save conversation: %w", domain.ErrPersistence, err)
	}
	return nil
}
