// Package app wires configuration, storage, dispatch and events into a
// session for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/felixgeelhaar/concierge/internal/events"
	"github.com/felixgeelhaar/concierge/internal/llm"
	"github.com/felixgeelhaar/concierge/internal/session"
	"github.com/felixgeelhaar/concierge/internal/storage/backend"
)

// App holds an open session and the resources behind it
type App struct {
	Config  *config.LocalConfig
	Dir     string
	Session *session.Session
	Catalog *llm.Catalog

	logger  *slog.Logger
	closers []io.Closer
}

// Options controls how an App is opened
type Options struct {
	Config *config.LocalConfig
	// Dir is the data directory that anchors relative storage paths
	Dir    string
	Logger *slog.Logger
	// Events enables the AMQP publisher when the config names a broker
	Events bool
}

// Open opens storage and a session. A broker that cannot be reached is
// logged and events are dropped; storage failures are fatal.
func Open(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &App{
		Config:  opts.Config,
		Dir:     opts.Dir,
		Catalog: llm.DefaultCatalog(),
		logger:  opts.Logger,
	}

	kv, closer, err := backend.Open(ctx, opts.Config, opts.Dir, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, closer)

	var publisher events.Publisher = events.Noop{}
	if opts.Events && opts.Config.Events.Enabled() {
		conn, err := events.NewConnection(opts.Config.Events.BrokerURL, opts.Config.Events.Queue, opts.Logger)
		if err != nil {
			opts.Logger.Warn("event broker unavailable, dispatch events disabled", "error", err)
		} else {
			pub := events.NewAMQPPublisher(conn, opts.Logger)
			a.closers = append(a.closers, pub)
			publisher = pub
		}
	}

	dispatcher := llm.NewDispatcher(a.Catalog, llm.DispatcherConfig{
		HTTPClient: llm.NewHTTPClient(opts.Config.HTTP.Timeout()),
		Logger:     opts.Logger,
	})

	sess, err := session.Open(ctx, session.Options{
		KV:        kv,
		Catalog:   a.Catalog,
		Sender:    dispatcher,
		Publisher: publisher,
		Logger:    opts.Logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	a.Session = sess

	return a, nil
}

// Close closes the session, then every resource in reverse order
func (a *App) Close() error {
	var errs []error
	if a.Session != nil {
		errs = append(errs, a.Session.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
