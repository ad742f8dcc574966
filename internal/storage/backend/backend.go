// Package backend opens the storage.KV selected by configuration.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/felixgeelhaar/concierge/internal/storage"
	"github.com/felixgeelhaar/concierge/internal/storage/local"
	"github.com/felixgeelhaar/concierge/internal/storage/postgres"
	"github.com/felixgeelhaar/concierge/internal/storage/sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open creates the configured backend. dataDir anchors relative paths. The
// returned closer releases the underlying database, if any.
func Open(ctx context.Context, cfg *config.LocalConfig, dataDir string, logger *slog.Logger) (storage.KV, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, state will not survive restart")
		return storage.NewMemory(), nopCloser{}, nil

	case config.BackendLocal, "":
		path := cfg.StoragePath(dataDir)
		store, err := local.NewStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open local store: %w", err)
		}
		logger.Info("storage ready", "backend", config.BackendLocal, "path", path)
		return store, nopCloser{}, nil

	case config.BackendSQLite:
		path := cfg.StoragePath(dataDir)
		db, err := sqlite.Open(path, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("storage ready", "backend", config.BackendSQLite, "path", path)
		return sqlite.NewKV(db), db, nil

	case config.BackendPostgres:
		kv, err := postgres.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storage ready", "backend", config.BackendPostgres)
		return kv, kv, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
