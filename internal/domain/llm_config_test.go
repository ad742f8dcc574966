package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestResolve_NoOverrideReturnsGlobal(t *testing.T) {
	global := LLMConfig{
		APIKey:      Ptr("k1"),
		Provider:    Ptr("openai"),
		Model:       Ptr("gpt-4"),
		Temperature: Ptr(0.3),
	}

	tests := []struct {
		name      string
		assistant *Assistant
	}{
		{"nil assistant", nil},
		{"assistant without override", &Assistant{ID: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.assistant, global)
			if !reflect.DeepEqual(got, global) {
				t.Errorf("Resolve() = %+v, want %+v", got, global)
			}
		})
	}
}

func TestResolve_OverrideWinsFieldByField(t *testing.T) {
	global := LLMConfig{APIKey: Ptr("k1"), Model: Ptr("m1")}
	a := &Assistant{ID: "a", LLMConfig: &LLMConfig{Model: Ptr("m2")}}

	got := Resolve(a, global)
	want := LLMConfig{APIKey: Ptr("k1"), Model: Ptr("m2")}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}

func TestResolve_EveryField(t *testing.T) {
	global := LLMConfig{
		APIKey:      Ptr("gk"),
		Provider:    Ptr("deepseek"),
		APIURL:      Ptr("https://global.example"),
		Model:       Ptr("gm"),
		Temperature: Ptr(0.7),
	}
	override := LLMConfig{
		APIKey:      Ptr("ok"),
		Provider:    Ptr("custom"),
		APIURL:      Ptr("https://override.example"),
		Model:       Ptr("om"),
		Temperature: Ptr(1.2),
	}

	got := Resolve(&Assistant{ID: "a", LLMConfig: &override}, global)
	if !reflect.DeepEqual(got, override) {
		t.Errorf("Resolve() = %+v, want %+v", got, override)
	}
}

func TestResolve_DefinedEmptyStringOverrides(t *testing.T) {
	global := LLMConfig{APIKey: Ptr("gk")}
	a := &Assistant{ID: "a", LLMConfig: &LLMConfig{APIKey: Ptr("")}}

	got := Resolve(a, global)
	if got.APIKey == nil || *got.APIKey != "" {
		t.Errorf("APIKey = %v, want defined empty string", got.APIKey)
	}
}

func TestResolve_DoesNotAlias(t *testing.T) {
	global := LLMConfig{Model: Ptr("m1")}
	got := Resolve(nil, global)
	*got.Model = "changed"

	if *global.Model != "m1" {
		t.Errorf("global mutated through resolved config: %q", *global.Model)
	}
}

func TestLLMConfig_JSONOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(LLMConfig{Model: Ptr("m")})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"model":"m"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "..."},
		{"sk-1234567890", "sk-12..."},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLLMConfig_Masked(t *testing.T) {
	cfg := LLMConfig{APIKey: Ptr("sk-secret-value"), Model: Ptr("m")}
	masked := cfg.Masked()

	if *masked.APIKey != "sk-se..." {
		t.Errorf("masked APIKey = %q", *masked.APIKey)
	}
	if *cfg.APIKey != "sk-secret-value" {
		t.Error("Masked() mutated the original")
	}
}

func TestAssistant_Clone(t *testing.T) {
	a := Assistant{ID: "a", LLMConfig: &LLMConfig{Model: Ptr("m")}}
	c := a.Clone()
	*c.LLMConfig.Model = "other"

	if *a.LLMConfig.Model != "m" {
		t.Error("Clone() shares the override with the original")
	}
}

func TestDefaultAssistant(t *testing.T) {
	a := DefaultAssistant()
	if a.ID != DefaultAssistantID {
		t.Errorf("ID = %q, want %q", a.ID, DefaultAssistantID)
	}
	if !a.IsProtected() {
		t.Error("default assistant should be protected")
	}
	if a.HasOverride() {
		t.Error("default assistant should start without override")
	}
}
