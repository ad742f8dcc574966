package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/concierge/internal/storage"
)

func TestKV_SetGet(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(openTestDB(t))

	if _, err := kv.Get(ctx, storage.KeyAssistants); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	if err := kv.Set(ctx, storage.KeyAssistants, []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := kv.Get(ctx, storage.KeyAssistants)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `[]` {
		t.Errorf("Get() = %s", got)
	}
}

func TestKV_Upsert(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(openTestDB(t))

	kv.Set(ctx, storage.KeyGlobalLLMConfig, []byte(`{"model":"m1"}`))
	kv.Set(ctx, storage.KeyGlobalLLMConfig, []byte(`{"model":"m2"}`))

	got, _ := kv.Get(ctx, storage.KeyGlobalLLMConfig)
	if string(got) != `{"model":"m2"}` {
		t.Errorf("Get() = %s, want last write", got)
	}

	keys, err := kv.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Keys() = %v, want one key", keys)
	}
}

func TestKV_Delete(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(openTestDB(t))

	kv.Set(ctx, storage.ConversationKey("super"), []byte(`[]`))
	if err := kv.Delete(ctx, storage.ConversationKey("super")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := kv.Delete(ctx, storage.ConversationKey("super")); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
	if _, err := kv.Get(ctx, storage.ConversationKey("super")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
}

func TestKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Migrate(ctx)
	NewKV(db).Set(ctx, "k", []byte("v"))
	db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	got, err := NewKV(db).Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %s, %v", got, err)
	}
}
