package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

const (
	// SystemPrompt is sent ahead of every user message
	SystemPrompt = "You are a helpful assistant."

	// DefaultTemperature applies when the resolved configuration has none
	DefaultTemperature = 0.7

	maxErrorBody = 1 << 20
)

// Dispatcher sends one chat message to the provider selected by a resolved
// configuration and reports the result as an Outcome. It never returns an
// error and makes no network call when the configuration is unusable.
type Dispatcher struct {
	catalog    *Catalog
	httpClient *http.Client
	logger     *slog.Logger
}

// DispatcherConfig holds optional collaborators for a Dispatcher
type DispatcherConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewDispatcher creates a dispatcher over the given catalog
func NewDispatcher(catalog *Catalog, cfg DispatcherConfig) *Dispatcher {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		catalog:    catalog,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Send dispatches userMessage using cfg, which must already be resolved.
func (d *Dispatcher) Send(ctx context.Context, userMessage string, cfg domain.LLMConfig) Outcome {
	providerID := cfg.ProviderValue()

	// A custom endpoint is checked first so a bad URL is reported as such
	// whether or not a key is present.
	if providerID == CustomProviderID {
		if err := ValidateURL(cfg.APIURLValue()); err != nil {
			d.logger.Info("dispatch skipped, invalid custom endpoint", "error", err)
			return InvalidEndpoint(err.Error())
		}
	}

	apiKey := cfg.APIKeyValue()
	if apiKey == "" {
		d.logger.Info("dispatch skipped, api key missing", "provider", providerID)
		return Failure(KindMissingAPIKey, "no api key configured")
	}

	provider, err := d.catalog.Lookup(providerID)
	if err != nil {
		d.logger.Info("dispatch skipped, unknown provider", "provider", providerID)
		return Failure(KindUnknownProvider, err.Error())
	}

	endpoint, err := d.catalog.BuildEndpoint(providerID, cfg.APIURLValue())
	if err != nil {
		d.logger.Info("dispatch skipped, invalid endpoint", "provider", providerID, "error", err)
		return InvalidEndpoint(err.Error())
	}

	body, err := json.Marshal(buildRequest(userMessage, cfg, provider))
	if err != nil {
		return Failure(KindValidation, "marshal request: "+err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Failure(KindValidation, "create request: "+err.Error())
	}
	setHeaders(httpReq, apiKey)

	d.logger.Debug("dispatching chat request",
		"provider", providerID,
		"endpoint", endpoint,
		"api_key", domain.MaskKey(apiKey),
	)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		d.logger.Warn("chat request failed", "provider", providerID, "error", err)
		return Failure(KindNetworkError, describeTransportError(err))
	}
	defer resp.Body.Close()

	d.logger.Debug("chat response received", "provider", providerID, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			d.logger.Warn("error body incomplete", "provider", providerID, "status", resp.StatusCode, "error", err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return Failure(KindInvalidCredentials, "provider rejected the api key")
		}
		d.logger.Warn("chat request rejected", "provider", providerID, "status", resp.StatusCode)
		return RequestFailed(resp.StatusCode, string(bodyBytes))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		d.logger.Warn("undecodable chat response", "provider", providerID, "error", err)
		return Success(EmptyReply)
	}
	return Success(extractContent(&parsed))
}

func buildRequest(userMessage string, cfg domain.LLMConfig, provider Provider) *chatRequest {
	model := provider.DefaultModel
	if cfg.Model != nil {
		model = *cfg.Model
	}

	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	return &chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: temperature,
		Stream:      false,
	}
}

func setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

func extractContent(resp *chatResponse) string {
	if len(resp.Choices) == 0 {
		return EmptyReply
	}
	content := resp.Choices[0].Message.Content
	if content == nil || *content == "" {
		return EmptyReply
	}
	return *content
}

func describeTransportError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	default:
		return err.Error()
	}
}
