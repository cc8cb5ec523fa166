package sinks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSinksFile(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryEnabledFilter(t *testing.T) {
	path := writeSinksFile(t, "sinks.yaml", `
sinks:
  - id: hook1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: hook2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "hook2" {
		t.Fatalf("expected only hook2 enabled, got %#v", enabled)
	}
	if _, ok := reg.ByID("hook1"); !ok {
		t.Fatalf("hook1 should still be registered")
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeSinksFile(t, "sinks.json", `{
  "sinks": [
    {"id": "q1", "type": "sqs", "sqs": {"uri": "https://sqs.example.com/q", "region": "eu-west-1"}}
  ]
}`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg, ok := reg.ByID("q1")
	if !ok || cfg.SQS == nil || cfg.SQS.Region != "eu-west-1" {
		t.Fatalf("cfg = %#v", cfg)
	}
}

func TestLoadRegistryRejectsDuplicateID(t *testing.T) {
	path := writeSinksFile(t, "sinks.yaml", `
sinks:
  - id: hook
    type: http
    http: {url: https://example.com}
  - id: hook
    type: http
    http: {url: https://example.com/2}
`)

	if _, err := LoadRegistry(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate id error", err)
	}
}

func TestSanitizeDefaultsHTTPConfig(t *testing.T) {
	cfg := sanitizeSinkConfig(SinkConfig{
		ID:   " hook ",
		Type: " HTTP ",
		HTTP: &HTTPSinkConfig{URL: " https://example.com "},
	})
	if cfg.ID != "hook" || cfg.Type != TypeHTTP {
		t.Fatalf("cfg = %#v", cfg)
	}
	if cfg.HTTP.Method != "POST" || cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", cfg.HTTP)
	}
	if !cfg.EnabledValue() {
		t.Fatalf("enabled should default to true")
	}
}

func TestValidateSinkConfigRejectsMissingBlocks(t *testing.T) {
	cases := []SinkConfig{
		{ID: "h", Type: TypeHTTP},
		{ID: "q", Type: TypeSQS},
		{ID: "n", Type: TypeSNS},
		{ID: "p", Type: TypePubSub},
		{Type: TypeHTTP, HTTP: &HTTPSinkConfig{URL: "https://example.com"}},
	}
	for _, cfg := range cases {
		if err := validateSinkConfig(cfg); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}
