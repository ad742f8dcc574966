package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/storage"
)

// failingKV rejects every write
type failingKV struct {
	storage.KV
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newTestRegistry(t *testing.T, initial ...domain.Assistant) (*Registry, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	r := NewRegistry(kv, initial, nil)
	if _, err := r.EnsureDefault(context.Background()); err != nil {
		t.Fatalf("EnsureDefault() error = %v", err)
	}
	return r, kv
}

func persisted(t *testing.T, kv storage.KV) []domain.Assistant {
	t.Helper()
	data, err := kv.Get(context.Background(), storage.KeyAssistants)
	if err != nil {
		t.Fatalf("Get(assistants) error = %v", err)
	}
	var list []domain.Assistant
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode persisted assistants: %v", err)
	}
	return list
}

func TestEnsureDefault_Idempotent(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestRegistry(t)

	created, err := r.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("EnsureDefault() error = %v", err)
	}
	if created {
		t.Error("second EnsureDefault() should not create")
	}

	count := 0
	for _, a := range r.List() {
		if a.ID == domain.DefaultAssistantID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("default assistants = %d, want 1", count)
	}
	if got := persisted(t, kv); len(got) != 1 || got[0].ID != domain.DefaultAssistantID {
		t.Errorf("persisted = %+v", got)
	}
}

func TestEnsureDefault_PrependsAndPersists(t *testing.T) {
	kv := storage.NewMemory()
	r := NewRegistry(kv, []domain.Assistant{{ID: "a1", Name: "Writer"}}, nil)

	created, err := r.EnsureDefault(context.Background())
	if err != nil || !created {
		t.Fatalf("EnsureDefault() = %v, %v", created, err)
	}

	got := persisted(t, kv)
	if len(got) != 2 || got[0].ID != domain.DefaultAssistantID || got[1].ID != "a1" {
		t.Errorf("persisted = %+v", got)
	}
}

func TestNewRegistry_DropsDuplicateAndEmptyIDs(t *testing.T) {
	r := NewRegistry(storage.NewMemory(), []domain.Assistant{
		{ID: "a", Name: "one"},
		{ID: "a", Name: "dup"},
		{ID: "", Name: "blank"},
	}, nil)

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestRegistry(t)

	a, err := r.Add(ctx, domain.Assistant{Name: "  Translator  ", Description: "translates"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if a.ID == "" {
		t.Error("Add() should generate an id")
	}
	if a.Name != "Translator" {
		t.Errorf("Name = %q, want trimmed", a.Name)
	}
	if len(persisted(t, kv)) != 2 {
		t.Error("Add() should write through")
	}
}

func TestAdd_Errors(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)
	r.Add(ctx, domain.Assistant{ID: "x", Name: "X"})

	tests := []struct {
		name    string
		in      domain.Assistant
		wantErr error
	}{
		{"empty name", domain.Assistant{ID: "y"}, domain.ErrValidation},
		{"blank name", domain.Assistant{ID: "y", Name: "  "}, domain.ErrValidation},
		{"duplicate id", domain.Assistant{ID: "x", Name: "again"}, domain.ErrConflict},
		{"default id", domain.Assistant{ID: domain.DefaultAssistantID, Name: "again"}, domain.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := r.Len()
			if _, err := r.Add(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if r.Len() != before {
				t.Error("failed Add() must not change the registry")
			}
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestRegistry(t)
	r.Add(ctx, domain.Assistant{ID: "a1", Name: "A1"})

	if err := r.Remove(ctx, "a1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := r.Get("a1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after remove error = %v", err)
	}
	if len(persisted(t, kv)) != 1 {
		t.Error("Remove() should write through")
	}

	if err := r.Remove(ctx, "a1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Remove() unknown error = %v, want ErrNotFound", err)
	}
}

func TestRemove_DefaultIsProtected(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)
	r.Add(ctx, domain.Assistant{ID: "a1", Name: "A1"})

	before := r.Len()
	for i := 0; i < 3; i++ {
		if err := r.Remove(ctx, domain.DefaultAssistantID); !errors.Is(err, domain.ErrRemoveProtectedEntity) {
			t.Fatalf("Remove(super) error = %v", err)
		}
	}
	if r.Len() != before {
		t.Errorf("Len() = %d, want %d", r.Len(), before)
	}
}

func TestSetPinned(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)
	r.Add(ctx, domain.Assistant{ID: "a1", Name: "A1"})
	r.Add(ctx, domain.Assistant{ID: "a2", Name: "A2"})

	if err := r.SetPinned(ctx, "a2", true); err != nil {
		t.Fatalf("SetPinned() error = %v", err)
	}

	list := r.List()
	if list[0].ID != "a2" || !list[0].Pinned {
		t.Errorf("List()[0] = %+v, want pinned a2 first", list[0])
	}
	if list[1].ID != domain.DefaultAssistantID || list[2].ID != "a1" {
		t.Errorf("unpinned order not preserved: %v, %v", list[1].ID, list[2].ID)
	}

	if err := r.SetPinned(ctx, "missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetPinned() unknown error = %v", err)
	}
}

func TestSetPinned_DefaultIsProtected(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)

	for _, pinned := range []bool{true, false} {
		if err := r.SetPinned(ctx, domain.DefaultAssistantID, pinned); !errors.Is(err, domain.ErrRemoveProtectedEntity) {
			t.Errorf("SetPinned(super, %v) error = %v", pinned, err)
		}
		a, _ := r.Get(domain.DefaultAssistantID)
		if a.Pinned {
			t.Error("default assistant must never become pinned")
		}
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	r, kv := newTestRegistry(t)

	if err := r.Rename(ctx, domain.DefaultAssistantID, "Helper"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got := persisted(t, kv); got[0].Name != "Helper" {
		t.Errorf("persisted name = %q", got[0].Name)
	}

	if err := r.Rename(ctx, domain.DefaultAssistantID, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Rename() empty error = %v", err)
	}
	if err := r.Rename(ctx, "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Rename() unknown error = %v", err)
	}
}

func TestSetOverride_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)

	first := &domain.LLMConfig{Model: domain.Ptr("m1"), APIKey: domain.Ptr("k1")}
	if err := r.SetOverride(ctx, domain.DefaultAssistantID, first); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}
	if err := r.SetOverride(ctx, domain.DefaultAssistantID, &domain.LLMConfig{Model: domain.Ptr("m2")}); err != nil {
		t.Fatalf("SetOverride() error = %v", err)
	}

	a, _ := r.Get(domain.DefaultAssistantID)
	if a.LLMConfig.ModelValue() != "m2" {
		t.Errorf("Model = %q, want m2", a.LLMConfig.ModelValue())
	}
	if a.LLMConfig.APIKey != nil {
		t.Error("previous override fields must not survive a replace")
	}

	*first.Model = "mutated"
	if a, _ := r.Get(domain.DefaultAssistantID); a.LLMConfig.ModelValue() != "m2" {
		t.Error("override aliased caller's config")
	}

	if err := r.SetOverride(ctx, domain.DefaultAssistantID, nil); err != nil {
		t.Fatalf("SetOverride(nil) error = %v", err)
	}
	if a, _ := r.Get(domain.DefaultAssistantID); a.HasOverride() {
		t.Error("nil override should clear")
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t)
	r.SetOverride(ctx, domain.DefaultAssistantID, &domain.LLMConfig{Model: domain.Ptr("m1")})

	list := r.List()
	list[0].Name = "changed"
	*list[0].LLMConfig.Model = "changed"

	a, _ := r.Get(domain.DefaultAssistantID)
	if a.Name == "changed" || a.LLMConfig.ModelValue() == "changed" {
		t.Error("List() leaked internal state")
	}
}

func TestPersistFailure_CommitsInMemory(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(failingKV{storage.NewMemory()}, nil, nil)

	if _, err := r.EnsureDefault(ctx); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("EnsureDefault() error = %v, want ErrPersistence", err)
	}
	if _, err := r.Get(domain.DefaultAssistantID); err != nil {
		t.Errorf("default should exist in memory despite write failure: %v", err)
	}

	_, err := r.Add(ctx, domain.Assistant{ID: "a1", Name: "A1"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("Add() error = %v, want ErrPersistence", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}
