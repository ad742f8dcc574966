package llm

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

func TestDefaultCatalog_Lookup(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		id      string
		wantErr error
	}{
		{"deepseek", nil},
		{"openai", nil},
		{"zhipu", nil},
		{"custom", nil},
		{"nonexistent", domain.ErrUnknownProvider},
		{"", domain.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, err := c.Lookup(tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && p.ID != tt.id {
				t.Errorf("Lookup() id = %q, want %q", p.ID, tt.id)
			}
		})
	}
}

func TestDefaultCatalog_ListOrder(t *testing.T) {
	list := DefaultCatalog().List()
	if len(list) != 10 {
		t.Fatalf("List() returned %d providers, want 10", len(list))
	}
	if list[0].ID != "deepseek" {
		t.Errorf("first provider = %q, want deepseek", list[0].ID)
	}
	if list[len(list)-1].ID != CustomProviderID {
		t.Errorf("last provider = %q, want custom", list[len(list)-1].ID)
	}
	if !list[len(list)-1].IsCustom() || list[len(list)-1].EndpointURL != "" {
		t.Error("custom provider should have an empty endpoint")
	}
}

func TestCatalog_RegisterReplacesInPlace(t *testing.T) {
	c := NewCatalog()
	c.Register(Provider{ID: "a", Name: "first"})
	c.Register(Provider{ID: "b"})
	c.Register(Provider{ID: "a", Name: "second"})

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("List() = %d, want 2", len(list))
	}
	if list[0].ID != "a" || list[0].Name != "second" {
		t.Errorf("List()[0] = %+v", list[0])
	}
}

func TestCatalog_BuildEndpoint(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name     string
		provider string
		userURL  string
		want     string
		wantErr  error
	}{
		{"fixed ignores user url", "openai", "https://elsewhere.example", "https://api.openai.com/v1/chat/completions", nil},
		{"fixed with empty url", "deepseek", "", "https://api.deepseek.com/chat/completions", nil},
		{"custom uses user url", "custom", "https://llm.local/v1/chat", "https://llm.local/v1/chat", nil},
		{"custom empty", "custom", "", "", domain.ErrValidation},
		{"custom blank", "custom", "   ", "", domain.ErrValidation},
		{"custom unparsable", "custom", "http://[::1", "", domain.ErrValidation},
		{"custom relative", "custom", "/v1/chat", "", domain.ErrValidation},
		{"custom wrong scheme", "custom", "ftp://host/x", "", domain.ErrValidation},
		{"unknown", "mystery", "https://x.example", "", domain.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.BuildEndpoint(tt.provider, tt.userURL)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("BuildEndpoint() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BuildEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCatalog_ValidateConfig(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name    string
		cfg     domain.LLMConfig
		wantErr error
	}{
		{"empty", domain.LLMConfig{}, nil},
		{"model only", domain.LLMConfig{Model: domain.Ptr("m2")}, nil},
		{"known provider", domain.LLMConfig{Provider: domain.Ptr("kimi")}, nil},
		{"unknown provider", domain.LLMConfig{Provider: domain.Ptr("acme")}, domain.ErrUnknownProvider},
		{"valid url", domain.LLMConfig{APIURL: domain.Ptr("https://x.example/chat")}, nil},
		{"invalid url", domain.LLMConfig{APIURL: domain.Ptr("x.example")}, domain.ErrValidation},
		{"temperature ok", domain.LLMConfig{Temperature: domain.Ptr(1.5)}, nil},
		{"temperature high", domain.LLMConfig{Temperature: domain.Ptr(2.5)}, domain.ErrValidation},
		{"temperature negative", domain.LLMConfig{Temperature: domain.Ptr(-0.1)}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.ValidateConfig(tt.cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
