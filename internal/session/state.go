package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/storage"
	"github.com/xeipuuv/gojsonschema"
)

const llmConfigSchema = `{
	"type": "object",
	"properties": {
		"apiKey":      {"type": "string"},
		"provider":    {"type": "string"},
		"apiUrl":      {"type": "string"},
		"model":       {"type": "string"},
		"temperature": {"type": "number"}
	}
}`

var (
	assistantsSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["id", "name"],
			"properties": {
				"id":          {"type": "string", "minLength": 1},
				"name":        {"type": "string"},
				"avatar":      {"type": "string"},
				"description": {"type": "string"},
				"pinned":      {"type": "boolean"},
				"llmConfig":   ` + llmConfigSchema + `
			}
		}
	}`)

	globalConfigSchema = mustSchema(llmConfigSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// validateDocument checks data against schema and joins every violation
func validateDocument(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// loadDocument reads key and decodes it into out. Missing, unreadable or
// malformed values leave out untouched and report false.
func loadDocument(ctx context.Context, kv storage.KV, key string, schema *gojsonschema.Schema, out any, logger *slog.Logger) bool {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		logger.Warn("failed to read persisted state, using defaults", "key", key, "error", err)
		return false
	}
	if err := validateDocument(schema, data); err != nil {
		logger.Warn("discarding malformed persisted state", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("discarding malformed persisted state", "key", key, "error", err)
		return false
	}
	return true
}

// loadAssistants reports whether a valid assistant list was stored
func loadAssistants(ctx context.Context, kv storage.KV, logger *slog.Logger) ([]domain.Assistant, bool) {
	var list []domain.Assistant
	if !loadDocument(ctx, kv, storage.KeyAssistants, assistantsSchema, &list, logger) {
		return []domain.Assistant{}, false
	}
	return list, true
}

func loadGlobal(ctx context.Context, kv storage.KV, logger *slog.Logger) domain.LLMConfig {
	var cfg domain.LLMConfig
	if !loadDocument(ctx, kv, storage.KeyGlobalLLMConfig, globalConfigSchema, &cfg, logger) {
		return domain.LLMConfig{}
	}
	return cfg
}

func loadCurrent(ctx context.Context, kv storage.KV) string {
	data, err := kv.Get(ctx, storage.KeyCurrentAssistant)
	if err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return ""
	}
	return id
}

// pruneConversations deletes histories whose assistant no longer exists.
// Only backends implementing storage.Lister are pruned.
func (s *Session) pruneConversations(ctx context.Context) {
	lister, ok := s.kv.(storage.Lister)
	if !ok {
		return
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		s.logger.Warn("conversation prune skipped", "error", err)
		return
	}
	for _, key := range keys {
		owner, ok := storage.ConversationOwner(key)
		if !ok {
			continue
		}
		if _, err := s.registry.Get(owner); err == nil {
			continue
		}
		if err := s.conversations.Clear(ctx, owner); err != nil {
			s.logger.Warn("failed to remove orphaned conversation", "assistant_id", owner, "error", err)
			continue
		}
		s.logger.Info("removed orphaned conversation", "assistant_id", owner)
	}
}

func saveJSON(ctx context.Context, kv storage.KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrPersistence, key, err)
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: save %s: %w", domain.ErrPersistence, key, err)
	}
	return nil
}
