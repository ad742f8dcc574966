package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/session"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// Server represents the Concierge daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	server  *http.Server
	router  *http.ServeMux
	logger  *slog.Logger
	version string
	started time.Time

	session session.Service
	limiter ratelimit.RateLimiter
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	Session session.Service
	Logger  *slog.Logger
	Version string
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		cfg:     cfg.Config,
		router:  http.NewServeMux(),
		logger:  cfg.Logger.With("component", "daemon"),
		version: cfg.Version,
		started: time.Now(),
		session: cfg.Session,
	}

	if rl := cfg.Config.RateLimit; rl.Enabled {
		burst := rl.Burst
		if burst <= 0 {
			burst = rl.RatePerSecond * 2
		}
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rl.RatePerSecond,
			Burst:    burst,
			Interval: time.Second,
		})
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Config.Daemon.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Config.HTTP.Timeout() + 15*time.Second, // sends wait on the upstream provider
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.limiter != nil {
		h = rateLimitMiddleware(s.limiter, s.logger)(h)
	}
	h = loggingMiddleware(s.logger)(h)
	h = correlationIDMiddleware(h)
	return recoveryMiddleware(s.logger)(h)
}

func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Provider catalog
	s.router.HandleFunc("GET /v1/providers", s.handleListProviders)
	s.router.HandleFunc("GET /v1/providers/{id}", s.handleGetProvider)

	// Assistants
	s.router.HandleFunc("GET /v1/assistants", s.handleListAssistants)
	s.router.HandleFunc("POST /v1/assistants", s.handleCreateAssistant)
	s.router.HandleFunc("GET /v1/assistants/{id}", s.handleGetAssistant)
	s.router.HandleFunc("PATCH /v1/assistants/{id}", s.handleUpdateAssistant)
	s.router.HandleFunc("DELETE /v1/assistants/{id}", s.handleDeleteAssistant)
	s.router.HandleFunc("POST /v1/assistants/{id}/select", s.handleSelectAssistant)
	s.router.HandleFunc("GET /v1/current", s.handleCurrent)

	// Configuration
	s.router.HandleFunc("GET /v1/config", s.handleGetGlobalConfig)
	s.router.HandleFunc("PUT /v1/config", s.handlePutGlobalConfig)
	s.router.HandleFunc("GET /v1/assistants/{id}/config", s.handleGetAssistantConfig)
	s.router.HandleFunc("PUT /v1/assistants/{id}/config", s.handlePutAssistantConfig)
	s.router.HandleFunc("DELETE /v1/assistants/{id}/config", s.handleDeleteAssistantConfig)

	// Conversation
	s.router.HandleFunc("POST /v1/assistants/{id}/messages", s.handleSendMessage)
	s.router.HandleFunc("GET /v1/assistants/{id}/messages", s.handleListMessages)
	s.router.HandleFunc("DELETE /v1/assistants/{id}/messages", s.handleClearMessages)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting concierge daemon",
		"addr", s.server.Addr,
		"storage", s.cfg.Storage.Backend,
		"rate_limit", s.limiter != nil,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn("failed to close rate limiter", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	writeJSONError(w, status, message, err)
}

// domainError writes err with the status its sentinel maps to
func (s *Server) domainError(w http.ResponseWriter, message string, err error) {
	s.jsonError(w, statusFor(err), message, err)
}

func writeJSONError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRemoveProtectedEntity):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
