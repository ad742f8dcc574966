package domain

// DefaultAssistantID identifies the protected default assistant. It always
// exists after boot and can be neither removed nor pinned.
const DefaultAssistantID = "super"

// Assistant is a configurable conversational persona backed by an upstream
// provider.
type Assistant struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	Description string     `json:"description"`
	Pinned      bool       `json:"pinned,omitempty"`
	LLMConfig   *LLMConfig `json:"llmConfig,omitempty"`
}

// DefaultAssistant returns a freshly synthesized default assistant.
func DefaultAssistant() Assistant {
	return Assistant{
		ID:          DefaultAssistantID,
		Name:        "Super Assistant",
		Avatar:      "/super-assistant.png",
		Description: "All-round assistant, gets things done",
	}
}

// IsProtected reports whether the assistant is the protected default.
func (a *Assistant) IsProtected() bool {
	return a.ID == DefaultAssistantID
}

// HasOverride reports whether the assistant carries its own LLM settings.
func (a *Assistant) HasOverride() bool {
	return a.LLMConfig != nil
}

// Clone returns a deep copy of the assistant.
func (a Assistant) Clone() Assistant {
	if a.LLMConfig != nil {
		cfg := a.LLMConfig.Clone()
		a.LLMConfig = &cfg
	}
	return a
}
