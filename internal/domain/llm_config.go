package domain

// LLMConfig describes how to reach an upstream provider. Every field is
// optional: a nil field means "inherit from the global configuration". A
// non-nil empty string is a defined value and takes precedence when merged.
type LLMConfig struct {
	APIKey      *string  `json:"apiKey,omitempty"`
	Provider    *string  `json:"provider,omitempty"`
	APIURL      *string  `json:"apiUrl,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// APIKeyValue returns the API key or "" when absent.
func (c LLMConfig) APIKeyValue() string { return deref(c.APIKey) }

// ProviderValue returns the provider id or "" when absent.
func (c LLMConfig) ProviderValue() string { return deref(c.Provider) }

// APIURLValue returns the user-supplied endpoint or "" when absent.
func (c LLMConfig) APIURLValue() string { return deref(c.APIURL) }

// ModelValue returns the model or "" when absent.
func (c LLMConfig) ModelValue() string { return deref(c.Model) }

// IsZero reports whether no field is set.
func (c LLMConfig) IsZero() bool {
	return c.APIKey == nil && c.Provider == nil && c.APIURL == nil &&
		c.Model == nil && c.Temperature == nil
}

// Clone returns a deep copy so callers cannot alias stored state.
func (c LLMConfig) Clone() LLMConfig {
	return LLMConfig{
		APIKey:      clonePtr(c.APIKey),
		Provider:    clonePtr(c.Provider),
		APIURL:      clonePtr(c.APIURL),
		Model:       clonePtr(c.Model),
		Temperature: clonePtr(c.Temperature),
	}
}

// Masked returns a copy with the API key reduced to a short prefix, safe to
// log or return over the API.
func (c LLMConfig) Masked() LLMConfig {
	out := c.Clone()
	if out.APIKey != nil {
		out.APIKey = Ptr(MaskKey(*out.APIKey))
	}
	return out
}

// Resolve merges an assistant's override over the global configuration,
// field by field. It has no side effects.
func Resolve(a *Assistant, global LLMConfig) LLMConfig {
	if a == nil || a.LLMConfig == nil {
		return global.Clone()
	}
	o := a.LLMConfig
	return LLMConfig{
		APIKey:      clonePtr(coalesce(o.APIKey, global.APIKey)),
		Provider:    clonePtr(coalesce(o.Provider, global.Provider)),
		APIURL:      clonePtr(coalesce(o.APIURL, global.APIURL)),
		Model:       clonePtr(coalesce(o.Model, global.Model)),
		Temperature: clonePtr(coalesce(o.Temperature, global.Temperature)),
	}
}

// MaskKey keeps the first five characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 5 {
		return "..."
	}
	return key[:5] + "..."
}

func coalesce[T any](override, fallback *T) *T {
	if override != nil {
		return override
	}
	return fallback
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
