package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/felixgeelhaar/concierge/internal/session"
	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
)

// Server wraps the MCP server with Concierge functionality
type Server struct {
	mcpServer *server.Server
	session   session.Service
}

// Config contains configuration for the MCP server
type Config struct {
	Session session.Service
	Version string
}

// NewServer creates a new MCP server for Concierge
func NewServer(cfg Config) *Server {
	s := &Server{
		session: cfg.Session,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "concierge",
		Version: version,
	}, server.WithInstructions(`
Concierge routes chat messages to configurable AI assistants.
Each assistant inherits the global LLM configuration unless it carries its own
override; fields missing from an override fall back to the global value.

Available tools:
- concierge_list_assistants: List assistants and the current selection
- concierge_send: Send a message to an assistant and get the reply
- concierge_resolve_config: Show the effective configuration of an assistant
- concierge_list_providers: List the known LLM providers
- concierge_select: Make an assistant the current one
- concierge_history: Read an assistant's conversation

Failed requests are not tool errors: the reply carries a notice such as a
missing API key or an upstream status code.
`))

	s.registerTools()

	return s
}

// registerTools registers all Concierge MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("concierge_list_assistants").
		Description("List assistants, pinned first, with the current selection.").
		Handler(s.handleListAssistants)

	s.mcpServer.Tool("concierge_send").
		Description("Send a message to an assistant. Defaults to the current assistant.").
		Handler(s.handleSend)

	s.mcpServer.Tool("concierge_resolve_config").
		Description("Resolve an assistant's effective LLM configuration. API keys are masked.").
		Handler(s.handleResolveConfig)

	s.mcpServer.Tool("concierge_list_providers").
		Description("List the provider catalog with endpoints and default models.").
		Handler(s.handleListProviders)

	s.mcpServer.Tool("concierge_select").
		Description("Make an assistant the current one.").
		Handler(s.handleSelect)

	s.mcpServer.Tool("concierge_history").
		Description("Read an assistant's conversation, oldest first.").
		Handler(s.handleHistory)
}

// Input/Output types for tools

type ListAssistantsInput struct{}

type AssistantSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Pinned      bool   `json:"pinned"`
	Protected   bool   `json:"protected"`
	HasOverride bool   `json:"has_override"`
}

type ListAssistantsOutput struct {
	Assistants []AssistantSummary `json:"assistants"`
	Current    string             `json:"current"`
}

type SendInput struct {
	AssistantID string `json:"assistant_id,omitempty" jsonschema:"description=Assistant ID (defaults to the current assistant)"`
	Message     string `json:"message" jsonschema:"description=Message text to send"`
}

type SendOutput struct {
	AssistantID string `json:"assistant_id"`
	Reply       string `json:"reply"`
	Outcome     string `json:"outcome"`
	Status      int    `json:"status,omitempty"`
}

type ResolveConfigInput struct {
	AssistantID string `json:"assistant_id,omitempty" jsonschema:"description=Assistant ID (defaults to the current assistant)"`
}

type ResolveConfigOutput struct {
	AssistantID string  `json:"assistant_id"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model,omitempty"`
	APIURL      string  `json:"api_url,omitempty"`
	APIKey      string  `json:"api_key,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Overridden  bool    `json:"overridden"`
}

type ListProvidersInput struct{}

type ProviderSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EndpointURL  string `json:"endpoint_url,omitempty"`
	DefaultModel string `json:"default_model,omitempty"`
}

type ListProvidersOutput struct {
	Providers []ProviderSummary `json:"providers"`
}

type SelectInput struct {
	AssistantID string `json:"assistant_id" jsonschema:"description=Assistant ID to select"`
}

type SelectOutput struct {
	Current string `json:"current"`
	Message string `json:"message"`
}

type HistoryInput struct {
	AssistantID string `json:"assistant_id,omitempty" jsonschema:"description=Assistant ID (defaults to the current assistant)"`
	Limit       int    `json:"limit,omitempty" jsonschema:"description=Return only the last N messages"`
}

type HistoryMessage struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type HistoryOutput struct {
	AssistantID string           `json:"assistant_id"`
	Messages    []HistoryMessage `json:"messages"`
}

// Tool handlers

func (s *Server) handleListAssistants(ctx context.Context, input ListAssistantsInput) (ListAssistantsOutput, error) {
	if s.session == nil {
		return ListAssistantsOutput{}, fmt.Errorf("session not available")
	}

	assistants := s.session.Assistants()
	out := ListAssistantsOutput{
		Assistants: make([]AssistantSummary, 0, len(assistants)),
		Current:    s.session.Current().ID,
	}
	for _, a := range assistants {
		out.Assistants = append(out.Assistants, AssistantSummary{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Pinned:      a.Pinned,
			Protected:   a.IsProtected(),
			HasOverride: a.HasOverride(),
		})
	}
	return out, nil
}

func (s *Server) handleSend(ctx context.Context, input SendInput) (SendOutput, error) {
	if s.session == nil {
		return SendOutput{}, fmt.Errorf("session not available")
	}

	id := s.assistantOrCurrent(input.AssistantID)
	exchange, err := s.session.Send(ctx, id, input.Message)
	if err != nil {
		return SendOutput{}, fmt.Errorf("failed to send message: %w", err)
	}

	return SendOutput{
		AssistantID: id,
		Reply:       exchange.Reply.Content,
		Outcome:     string(exchange.Outcome.Kind),
		Status:      exchange.Outcome.Status,
	}, nil
}

func (s *Server) handleResolveConfig(ctx context.Context, input ResolveConfigInput) (ResolveConfigOutput, error) {
	if s.session == nil {
		return ResolveConfigOutput{}, fmt.Errorf("session not available")
	}

	id := s.assistantOrCurrent(input.AssistantID)
	a, err := s.session.Assistant(id)
	if err != nil {
		return ResolveConfigOutput{}, fmt.Errorf("failed to get assistant: %w", err)
	}
	cfg, err := s.session.Resolve(id)
	if err != nil {
		return ResolveConfigOutput{}, fmt.Errorf("failed to resolve config: %w", err)
	}

	out := ResolveConfigOutput{
		AssistantID: id,
		Provider:    cfg.ProviderValue(),
		Model:       cfg.ModelValue(),
		APIURL:      cfg.APIURLValue(),
		APIKey:      domain.MaskKey(cfg.APIKeyValue()),
		Overridden:  a.HasOverride(),
	}
	if cfg.Temperature != nil {
		out.Temperature = *cfg.Temperature
	}
	return out, nil
}

func (s *Server) handleListProviders(ctx context.Context, input ListProvidersInput) (ListProvidersOutput, error) {
	if s.session == nil {
		return ListProvidersOutput{}, fmt.Errorf("session not available")
	}

	providers := s.session.Providers()
	out := ListProvidersOutput{Providers: make([]ProviderSummary, 0, len(providers))}
	for _, p := range providers {
		out.Providers = append(out.Providers, ProviderSummary{
			ID:           p.ID,
			Name:         p.Name,
			EndpointURL:  p.EndpointURL,
			DefaultModel: p.DefaultModel,
		})
	}
	return out, nil
}

func (s *Server) handleSelect(ctx context.Context, input SelectInput) (SelectOutput, error) {
	if s.session == nil {
		return SelectOutput{}, fmt.Errorf("session not available")
	}

	if err := s.session.Select(ctx, input.AssistantID); err != nil {
		return SelectOutput{}, fmt.Errorf("failed to select assistant: %w", err)
	}
	current := s.session.Current()
	return SelectOutput{
		Current: current.ID,
		Message: fmt.Sprintf("Now talking to %s", current.Name),
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, input HistoryInput) (HistoryOutput, error) {
	if s.session == nil {
		return HistoryOutput{}, fmt.Errorf("session not available")
	}

	id := s.assistantOrCurrent(input.AssistantID)
	messages, err := s.session.Messages(ctx, id)
	if err != nil {
		return HistoryOutput{}, fmt.Errorf("failed to load history: %w", err)
	}
	if input.Limit > 0 && len(messages) > input.Limit {
		messages = messages[len(messages)-input.Limit:]
	}

	out := HistoryOutput{
		AssistantID: id,
		Messages:    make([]HistoryMessage, 0, len(messages)),
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, HistoryMessage{
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out, nil
}

func (s *Server) assistantOrCurrent(id string) string {
	if id != "" {
		return id
	}
	return s.session.Current().ID
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
