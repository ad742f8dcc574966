package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/felixgeelhaar/concierge/internal/domain"
	"github.com/spf13/cobra"
)

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

// setupHome points the CLI at an empty data directory
func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.HomeEnv, dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("concierge %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func addAssistant(t *testing.T, args ...string) string {
	t.Helper()
	out := mustRun(t, append([]string{"assistants", "add"}, args...)...)
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in output %q", out)
	}
	return m[1]
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	if !strings.Contains(out, "concierge "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestAssistantsList_DefaultOnly(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "assistants", "list")
	if !strings.Contains(out, domain.DefaultAssistantID) || !strings.Contains(out, "(default)") {
		t.Errorf("list output = %q", out)
	}
}

func TestAssistants_Lifecycle(t *testing.T) {
	setupHome(t)

	id := addAssistant(t, "Translator", "--description", "translates", "--model", "gpt-4o")

	out := mustRun(t, "assistants", "list")
	if !strings.Contains(out, "Translator") {
		t.Errorf("list after add = %q", out)
	}

	mustRun(t, "assistants", "rename", id, "Polyglot")
	mustRun(t, "assistants", "pin", id)
	out = mustRun(t, "assistants", "ls")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.Contains(lines[1], "Polyglot") {
		t.Errorf("pinned assistant should be listed first:\n%s", out)
	}

	out = mustRun(t, "assistants", "select", id)
	if !strings.Contains(out, "Polyglot") {
		t.Errorf("select output = %q", out)
	}

	mustRun(t, "assistants", "unpin", id)
	mustRun(t, "assistants", "remove", id)
	out = mustRun(t, "assistants", "list")
	if strings.Contains(out, "Polyglot") {
		t.Errorf("removed assistant still listed:\n%s", out)
	}
}

func TestAssistants_Errors(t *testing.T) {
	setupHome(t)

	tests := []struct {
		name string
		args []string
	}{
		{"remove default", []string{"assistants", "remove", domain.DefaultAssistantID}},
		{"pin default", []string{"assistants", "pin", domain.DefaultAssistantID}},
		{"rename missing", []string{"assistants", "rename", "ghost", "x"}},
		{"select missing", []string{"assistants", "select", "ghost"}},
		{"blank name", []string{"assistants", "add", "  "}},
		{"unknown provider", []string{"assistants", "add", "x", "--provider", "acme"}},
		{"missing args", []string{"assistants", "rename", "only-one"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Errorf("concierge %s should fail", strings.Join(tt.args, " "))
			}
		})
	}
}

func TestConfig_SetShowAndOverride(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "config", "set", "--provider", "openai", "--api-key", "sk-secret-value", "--model", "gpt-4o")
	if strings.Contains(out, "sk-secret-value") {
		t.Error("config set output leaks the api key")
	}

	out = mustRun(t, "config", "show")
	if !strings.Contains(out, "sk-se...") || !strings.Contains(out, "gpt-4o") {
		t.Errorf("config show = %q", out)
	}

	// Flags are applied to the current value
	mustRun(t, "config", "set", "--model", "gpt-4o-mini")
	out = mustRun(t, "config", "show")
	if !strings.Contains(out, "openai") || !strings.Contains(out, "gpt-4o-mini") {
		t.Errorf("config show after partial set = %q", out)
	}

	id := addAssistant(t, "Coder")
	mustRun(t, "config", "set-assistant", id, "--model", "o1")
	out = mustRun(t, "config", "show", id)
	resolved := out[strings.Index(out, "Resolved:"):]
	if !strings.Contains(resolved, "o1") || !strings.Contains(resolved, "openai") {
		t.Errorf("resolved section = %q", resolved)
	}

	mustRun(t, "config", "clear-assistant", id)
	out = mustRun(t, "config", "show", id)
	if !strings.Contains(out, "inherits global") {
		t.Errorf("show after clear = %q", out)
	}
}

func TestConfig_Errors(t *testing.T) {
	setupHome(t)

	tests := []struct {
		name string
		args []string
	}{
		{"nothing to set", []string{"config", "set"}},
		{"bad url", []string{"config", "set", "--provider", "custom", "--api-url", "::nope"}},
		{"bad temperature", []string{"config", "set", "--temperature", "hot"}},
		{"temperature out of range", []string{"config", "set", "--temperature", "3"}},
		{"missing assistant", []string{"config", "set-assistant", "ghost", "--model", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, tt.args...); err == nil {
				t.Errorf("concierge %s should fail", strings.Join(tt.args, " "))
			}
		})
	}
}

func TestConfigShow_Empty(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "nothing configured") {
		t.Errorf("config show on a fresh store = %q", out)
	}
}

func TestProvidersList(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "providers", "list")
	for _, want := range []string{"deepseek", "openai", "custom"} {
		if !strings.Contains(out, want) {
			t.Errorf("providers list missing %q:\n%s", want, out)
		}
	}
}

func TestSendAndHistory(t *testing.T) {
	setupHome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"bonjour"}}]}`)
	}))
	defer srv.Close()

	// No key configured yet: the notice is the reply
	out := mustRun(t, "send", "hello")
	if !strings.Contains(out, "API key") {
		t.Errorf("send without key = %q", out)
	}

	mustRun(t, "config", "set", "--provider", "custom", "--api-url", srv.URL, "--api-key", "test-key")
	out = mustRun(t, "send", "say", "hello")
	if strings.TrimSpace(out) != "bonjour" {
		t.Errorf("send reply = %q, want bonjour", out)
	}

	out = mustRun(t, "history", "-n", "2")
	if !strings.Contains(out, "say hello") || !strings.Contains(out, "bonjour") {
		t.Errorf("history = %q", out)
	}

	mustRun(t, "history", "--clear")
	out = mustRun(t, "history")
	if !strings.Contains(out, "No messages yet.") {
		t.Errorf("history after clear = %q", out)
	}

	if _, err := runCLI(t, "send", "--to", "ghost", "hi"); err == nil {
		t.Error("send to an unknown assistant should fail")
	}
}

func TestLLMFlags_Apply(t *testing.T) {
	var f llmFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--model", "m", "--api-url", "", "--temperature", "0.5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := domain.LLMConfig{
		Provider: domain.Ptr("openai"),
		APIURL:   domain.Ptr("https://old.example"),
	}
	if err := f.apply(cmd, &cfg); err != nil {
		t.Fatalf("apply() error = %v", err)
	}

	if cfg.ProviderValue() != "openai" {
		t.Errorf("provider = %q, untouched flags must keep their value", cfg.ProviderValue())
	}
	if cfg.ModelValue() != "m" {
		t.Errorf("model = %q", cfg.ModelValue())
	}
	if cfg.APIURL != nil {
		t.Errorf("api url = %q, an empty flag must unset it", *cfg.APIURL)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Errorf("temperature = %v", cfg.Temperature)
	}
	if !f.any(cmd) {
		t.Error("any() = false with flags set")
	}
}

func TestEventsTail_RequiresBroker(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "events", "tail")
	if err == nil || !strings.Contains(err.Error(), "no broker configured") {
		t.Errorf("events tail error = %v", err)
	}
}

func TestDaemonStatus_Stopped(t *testing.T) {
	setupHome(t)
	t.Setenv("CONCIERGE_DAEMON_PORT", "1")

	out := mustRun(t, "daemon", "status")
	if !strings.Contains(out, "stopped") {
		t.Errorf("daemon status = %q", out)
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, "http://127.0.0.1:7433", &daemonStatus{
		Status:     "running",
		Version:    "1.0.0",
		UptimeS:    90,
		Storage:    "sqlite",
		Assistants: 3,
		Current:    "super",
		Providers:  10,
	})

	out := buf.String()
	for _, want := range []string{"running", "1m30s", "sqlite", "3 (current: super)", "off"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}
