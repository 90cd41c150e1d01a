// Copyright 2025 Joseph Cumines
//
// Configuration unit tests

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnv = []string{
	"A11Y_CONFIG_FILE",
	"A11Y_PROVIDER",
	"A11Y_TARGET",
	"A11Y_STDIN",
	"A11Y_HTTP_ADDRESS",
	"A11Y_HTTP_SOCKET",
	"A11Y_CORS_ORIGIN",
	"A11Y_HTTP_READ_TIMEOUT",
	"A11Y_HTTP_WRITE_TIMEOUT",
	"A11Y_RATE_LIMIT",
	"A11Y_GRPC_ADDRESS",
	"A11Y_AUDIT_LOG_FILE",
	"A11Y_AUDIT_REDACT_KEYS",
	"A11Y_SETTLE_DELAY",
	"A11Y_DOUBLE_CLICK_DELAY",
	"A11Y_KEYSTROKE_DELAY",
	"A11Y_DEBUG",
}

// clearEnv unsets every variable Load reads, restoring them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnv {
		if v, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, v) })
		}
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inspector.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != "uia" {
		t.Errorf("Provider = %s, want uia", cfg.Provider)
	}
	if cfg.Stdin != StdinConsole {
		t.Errorf("Stdin = %s, want console", cfg.Stdin)
	}
	if cfg.HTTPAddress != "localhost:8080" {
		t.Errorf("HTTPAddress = %s, want localhost:8080", cfg.HTTPAddress)
	}
	if cfg.GRPCAddress != "localhost:50051" {
		t.Errorf("GRPCAddress = %s, want localhost:50051", cfg.GRPCAddress)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("CORSOrigin = %s, want *", cfg.CORSOrigin)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %g, want 0", cfg.RateLimit)
	}
	if !cfg.AuditRedactKeys {
		t.Error("AuditRedactKeys = false, want true")
	}
	if cfg.SettleDelay != 50*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 50ms", cfg.SettleDelay)
	}
	if cfg.DoubleClickDelay != 100*time.Millisecond {
		t.Errorf("DoubleClickDelay = %v, want 100ms", cfg.DoubleClickDelay)
	}
	if cfg.KeystrokeDelay != 5*time.Millisecond {
		t.Errorf("KeystrokeDelay = %v, want 5ms", cfg.KeystrokeDelay)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("A11Y_PROVIDER", "MSAA")
	t.Setenv("A11Y_TARGET", "Untitled - Notepad")
	t.Setenv("A11Y_STDIN", "mcp")
	t.Setenv("A11Y_RATE_LIMIT", "2.5")
	t.Setenv("A11Y_AUDIT_REDACT_KEYS", "false")
	t.Setenv("A11Y_KEYSTROKE_DELAY", "20ms")
	t.Setenv("A11Y_DEBUG", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ProviderKind() != "msaa" {
		t.Errorf("ProviderKind() = %s, want msaa", cfg.ProviderKind())
	}
	if cfg.Target != "Untitled - Notepad" {
		t.Errorf("Target = %q", cfg.Target)
	}
	if cfg.Stdin != StdinMCP {
		t.Errorf("Stdin = %s, want mcp", cfg.Stdin)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %g, want 2.5", cfg.RateLimit)
	}
	if cfg.AuditRedactKeys {
		t.Error("AuditRedactKeys = true, want false")
	}
	if cfg.KeystrokeDelay != 20*time.Millisecond {
		t.Errorf("KeystrokeDelay = %v, want 20ms", cfg.KeystrokeDelay)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestLoad_EmptyAddressDisablesListener(t *testing.T) {
	clearEnv(t)
	t.Setenv("A11Y_HTTP_ADDRESS", "")
	t.Setenv("A11Y_GRPC_ADDRESS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddress != "" || cfg.GRPCAddress != "" {
		t.Errorf("addresses = (%q, %q), want both empty", cfg.HTTPAddress, cfg.GRPCAddress)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"provider", "A11Y_PROVIDER", "atspi", "invalid provider"},
		{"stdin", "A11Y_STDIN", "tty", "invalid stdin mode"},
		{"rate limit not a number", "A11Y_RATE_LIMIT", "fast", "A11Y_RATE_LIMIT"},
		{"negative rate limit", "A11Y_RATE_LIMIT", "-1", "invalid rate limit"},
		{"duration", "A11Y_SETTLE_DELAY", "soon", "A11Y_SETTLE_DELAY"},
		{"negative duration", "A11Y_KEYSTROKE_DELAY", "-5ms", "keystroke delay"},
		{"read timeout", "A11Y_HTTP_READ_TIMEOUT", "30", "A11Y_HTTP_READ_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_Layering(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
provider: msaa
target: Calculator
http_address: ":9000"
rate_limit: 10
settle_delay: 75ms
audit_redact_keys: false
`)
	t.Setenv("A11Y_TARGET", "Notepad")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Provider != "msaa" {
		t.Errorf("Provider = %s, want msaa (file)", cfg.Provider)
	}
	if cfg.Target != "Notepad" {
		t.Errorf("Target = %q, want Notepad (env over file)", cfg.Target)
	}
	if cfg.HTTPAddress != ":9000" {
		t.Errorf("HTTPAddress = %s, want :9000", cfg.HTTPAddress)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %g, want 10", cfg.RateLimit)
	}
	if cfg.SettleDelay != 75*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 75ms", cfg.SettleDelay)
	}
	if cfg.AuditRedactKeys {
		t.Error("AuditRedactKeys = true, want false (file)")
	}
	if cfg.GRPCAddress != "localhost:50051" {
		t.Errorf("GRPCAddress = %s, want default", cfg.GRPCAddress)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("A11Y_CONFIG_FILE", writeFile(t, "stdin: none\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stdin != StdinNone {
		t.Errorf("Stdin = %s, want none", cfg.Stdin)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "colour: blue\n"},
		{"bad duration", "settle_delay: tomorrow\n"},
		{"malformed", "provider: [uia\n"},
		{"invalid value", "provider: atspi\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := LoadFile(writeFile(t, tt.content)); err == nil {
				t.Error("LoadFile() error = nil, want error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadFile() error = nil, want error")
		}
	})
}

func TestLoadFile_Empty(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(writeFile(t, ""))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Provider != "uia" {
		t.Errorf("Provider = %s, want default", cfg.Provider)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"no", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("A11Y_TEST_BOOL", tt.value)
			if got := getEnvAsBool("A11Y_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("getEnvAsBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
