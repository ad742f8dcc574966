package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Environment variable prefixes, one per config group
const (
	EnvDaemon    = "CONCIERGE_DAEMON"
	EnvStorage   = "CONCIERGE_STORAGE"
	EnvEvents    = "CONCIERGE_EVENTS"
	EnvHTTP      = "CONCIERGE_HTTP"
	EnvRateLimit = "CONCIERGE_RATELIMIT"
)

// ApplyEnv overrides cfg with environment variables, e.g.
// CONCIERGE_DAEMON_PORT or CONCIERGE_STORAGE_BACKEND. Unset variables leave
// the file value in place.
func ApplyEnv(cfg *LocalConfig) error {
	groups := []struct {
		prefix string
		spec   any
	}{
		{EnvDaemon, &cfg.Daemon},
		{EnvStorage, &cfg.Storage},
		{EnvEvents, &cfg.Events},
		{EnvHTTP, &cfg.HTTP},
		{EnvRateLimit, &cfg.RateLimit},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return err
		}
	}
	return nil
}
