package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HomeEnv overrides the data directory location
const HomeEnv = "CONCIERGE_HOME"

// Storage backends
const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// LocalConfig holds configuration for the daemon and CLI
type LocalConfig struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Storage   StorageConfig   `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port" split_words:"true"`
	Bind     string `yaml:"bind" split_words:"true"`
	LogLevel string `yaml:"log_level" split_words:"true"`
}

// Addr returns the listen address
func (d DaemonConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Bind, d.Port)
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend string `yaml:"backend" split_words:"true"`
	// Path is the directory (local) or database file (sqlite). Relative
	// paths are resolved against the data directory.
	Path string `yaml:"path,omitempty" split_words:"true"`
	DSN  string `yaml:"dsn,omitempty" split_words:"true"`
}

// EventsConfig holds the optional AMQP publisher settings
type EventsConfig struct {
	BrokerURL string `yaml:"amqp_url,omitempty" split_words:"true"`
	Queue     string `yaml:"queue" split_words:"true"`
}

// Enabled reports whether dispatch events should be published
func (e EventsConfig) Enabled() bool {
	return e.BrokerURL != ""
}

// HTTPConfig holds outbound LLM request settings
type HTTPConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" split_words:"true"`
}

// Timeout returns the request timeout as a duration
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// RateLimitConfig holds daemon API rate limiting settings
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled" split_words:"true"`
	RatePerSecond int  `yaml:"rate_per_second" split_words:"true"`
	Burst         int  `yaml:"burst" split_words:"true"`
}

// ConciergeDir returns the data directory, ~/.concierge unless CONCIERGE_HOME is set
func ConciergeDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".concierge"), nil
}

// EnsureConciergeDir creates the data directory and its subdirectories
func EnsureConciergeDir() (string, error) {
	dir, err := ConciergeDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7433,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
		},
		Events: EventsConfig{
			Queue: "concierge.dispatches",
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 120,
		},
		RateLimit: RateLimitConfig{
			Enabled:       false,
			RatePerSecond: 20,
			Burst:         40,
		},
	}
}

// Validate checks the loaded configuration
func (c *LocalConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendLocal, BackendSQLite:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage: postgres backend requires dsn")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon: invalid port %d", c.Daemon.Port)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http: timeout_seconds must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RatePerSecond <= 0 {
		return fmt.Errorf("ratelimit: rate_per_second must be positive")
	}
	return nil
}

// StoragePath resolves Storage.Path against dir. An empty path selects the
// backend default: data/ for local, data/concierge.db for sqlite.
func (c *LocalConfig) StoragePath(dir string) string {
	path := c.Storage.Path
	if path == "" {
		path = "data"
		if c.Storage.Backend == BackendSQLite {
			path = filepath.Join("data", "concierge.db")
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// LoadLocalConfig loads <data dir>/config.yaml and applies environment overrides
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := ConciergeDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(filepath.Join(dir, "config.yaml"))
}

// LoadLocalConfigFrom loads a config file at path. A missing file yields defaults.
func LoadLocalConfigFrom(path string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveLocalConfig saves configuration to <data dir>/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureConciergeDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// dsn may carry credentials
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
