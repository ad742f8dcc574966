package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/concierge/internal/storage"
)

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if store.basePath != tmpDir {
		t.Errorf("basePath = %v, want %v", store.basePath, tmpDir)
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "subdir", "nested")

	if _, err := NewStore(newDir); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	value := []byte(`[{"id":"super","name":"Super Assistant"}]`)
	if err := store.Set(ctx, storage.KeyAssistants, value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, storage.KeyAssistants)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("Get() = %s, want %s", got, value)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Get_PreservesMalformedBytes(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	store.Set(ctx, storage.KeyGlobalLLMConfig, []byte("{not json"))

	got, err := store.Get(ctx, storage.KeyGlobalLLMConfig)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "{not json" {
		t.Errorf("Get() = %s", got)
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	store.Set(ctx, "item", []byte("1"))
	store.Set(ctx, "item", []byte("2"))

	got, _ := store.Get(ctx, "item")
	if string(got) != "2" {
		t.Errorf("Get() = %s, want 2 (overwritten)", got)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	store.Set(ctx, "to-delete", []byte("x"))

	if err := store.Delete(ctx, "to-delete"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "to-delete"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "to-delete"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestStore_KeysWithSeparators(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	keys := []string{storage.KeyAssistants, storage.ConversationKey("super"), "a/b"}
	for _, k := range keys {
		if err := store.Set(ctx, k, []byte("{}")); err != nil {
			t.Fatalf("Set(%q) error = %v", k, err)
		}
	}

	got, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	want := []string{"a/b", storage.KeyAssistants, storage.ConversationKey("super")}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStore_Keys_IgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("x"), 0644)
	store.Set(context.Background(), "k", []byte("v"))

	keys, _ := store.Keys(context.Background())
	if len(keys) != 1 || keys[0] != "k" {
		t.Errorf("Keys() = %v, want [k]", keys)
	}
}

func TestStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	iterations := 10

	for i := 0; i < iterations; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			store.Set(ctx, string(rune('a'+n)), []byte{'0' + byte(n)})
		}(i)
		go func() {
			defer wg.Done()
			store.Keys(ctx)
		}()
		go func(n int) {
			defer wg.Done()
			store.Get(ctx, string(rune('a'+n)))
		}(i)
	}

	wg.Wait()

	keys, _ := store.Keys(ctx)
	if len(keys) != iterations {
		t.Errorf("Keys() = %d, want %d", len(keys), iterations)
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, _ := NewStore(dir)
	first.Set(ctx, storage.KeyGlobalLLMConfig, []byte(`{"model":"m1"}`))

	second, _ := NewStore(dir)
	got, err := second.Get(ctx, storage.KeyGlobalLLMConfig)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"model":"m1"}` {
		t.Errorf("Get() = %s", got)
	}
}
