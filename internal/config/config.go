// Copyright 2025 Joseph Cumines
//
// Configuration package for the accessibility inspector

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
)

// StdinMode selects what, if anything, consumes the process's stdin.
type StdinMode string

const (
	// StdinConsole reads one command line per input line
	StdinConsole StdinMode = "console"
	// StdinMCP speaks MCP (JSON-RPC 2.0, one message per line)
	StdinMCP StdinMode = "mcp"
	// StdinNone leaves stdin alone
	StdinNone StdinMode = "none"
)

// Config holds the configuration for the inspector process.
//
// Values are layered: defaults, then the optional YAML file, then
// environment variables. Command-line flags are applied on top by the
// binaries.
type Config struct {
	// Provider is the accessibility backend at startup: "uia" or "msaa".
	Provider string `yaml:"provider"`
	// Target is a window title (or process name) to select at startup.
	// Empty leaves the session without a target.
	Target string `yaml:"target"`

	// Stdin selects the stdin consumer.
	Stdin StdinMode `yaml:"stdin"`

	// HTTPAddress is the HTTP listener address. Empty disables HTTP.
	HTTPAddress string `yaml:"http_address"`
	// HTTPSocketPath is an optional Unix domain socket path, taking
	// precedence over HTTPAddress.
	HTTPSocketPath   string        `yaml:"http_socket"`
	CORSOrigin       string        `yaml:"cors_origin"`
	HTTPReadTimeout  time.Duration `yaml:"http_read_timeout"`
	HTTPWriteTimeout time.Duration `yaml:"http_write_timeout"`
	// RateLimit is requests per second for HTTP. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// GRPCAddress is the gRPC listener address. Empty disables gRPC.
	GRPCAddress string `yaml:"grpc_address"`

	// AuditLogFile receives one JSON record per command. Empty disables
	// auditing.
	AuditLogFile string `yaml:"audit_log_file"`
	// AuditRedactKeys replaces sendkeys text in audit records.
	AuditRedactKeys bool `yaml:"audit_redact_keys"`

	SettleDelay      time.Duration `yaml:"settle_delay"`
	DoubleClickDelay time.Duration `yaml:"double_click_delay"`
	KeystrokeDelay   time.Duration `yaml:"keystroke_delay"`

	Debug bool `yaml:"debug"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Provider:         string(a11y.KindUIA),
		Stdin:            StdinConsole,
		HTTPAddress:      "localhost:8080",
		CORSOrigin:       "*",
		HTTPReadTimeout:  30 * time.Second,
		HTTPWriteTimeout: 30 * time.Second,
		GRPCAddress:      "localhost:50051",
		AuditRedactKeys:  true,
		SettleDelay:      50 * time.Millisecond,
		DoubleClickDelay: 100 * time.Millisecond,
		KeystrokeDelay:   5 * time.Millisecond,
	}
}

// Load loads the configuration from the file named by A11Y_CONFIG_FILE
// (if set) and environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("A11Y_CONFIG_FILE"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		err = decodeYAML(f, cfg)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML overlays the document in r onto cfg. Unknown keys are an
// error.
func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	c.Provider = getEnv("A11Y_PROVIDER", c.Provider)
	c.Target = getEnv("A11Y_TARGET", c.Target)
	c.Stdin = StdinMode(getEnv("A11Y_STDIN", string(c.Stdin)))
	c.HTTPAddress = getEnvAllowEmpty("A11Y_HTTP_ADDRESS", c.HTTPAddress)
	c.HTTPSocketPath = getEnv("A11Y_HTTP_SOCKET", c.HTTPSocketPath)
	c.CORSOrigin = getEnv("A11Y_CORS_ORIGIN", c.CORSOrigin)
	c.GRPCAddress = getEnvAllowEmpty("A11Y_GRPC_ADDRESS", c.GRPCAddress)
	c.AuditLogFile = getEnv("A11Y_AUDIT_LOG_FILE", c.AuditLogFile)
	c.AuditRedactKeys = getEnvAsBool("A11Y_AUDIT_REDACT_KEYS", c.AuditRedactKeys)
	c.Debug = getEnvAsBool("A11Y_DEBUG", c.Debug)

	if c.HTTPReadTimeout, err = getEnvAsDuration("A11Y_HTTP_READ_TIMEOUT", c.HTTPReadTimeout); err != nil {
		return err
	}
	if c.HTTPWriteTimeout, err = getEnvAsDuration("A11Y_HTTP_WRITE_TIMEOUT", c.HTTPWriteTimeout); err != nil {
		return err
	}
	if c.RateLimit, err = getEnvAsFloat("A11Y_RATE_LIMIT", c.RateLimit); err != nil {
		return err
	}
	if c.SettleDelay, err = getEnvAsDuration("A11Y_SETTLE_DELAY", c.SettleDelay); err != nil {
		return err
	}
	if c.DoubleClickDelay, err = getEnvAsDuration("A11Y_DOUBLE_CLICK_DELAY", c.DoubleClickDelay); err != nil {
		return err
	}
	if c.KeystrokeDelay, err = getEnvAsDuration("A11Y_KEYSTROKE_DELAY", c.KeystrokeDelay); err != nil {
		return err
	}
	return nil
}

// Validate checks values that cannot be checked by type alone.
func (c *Config) Validate() error {
	if _, err := a11y.ParseKind(c.Provider); err != nil {
		return fmt.Errorf("invalid provider: %w", err)
	}
	switch c.Stdin {
	case StdinConsole, StdinMCP, StdinNone:
	default:
		return fmt.Errorf("invalid stdin mode: %s (must be 'console', 'mcp' or 'none')", c.Stdin)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %g (must not be negative)", c.RateLimit)
	}
	for name, d := range map[string]time.Duration{
		"settle delay":       c.SettleDelay,
		"double click delay": c.DoubleClickDelay,
		"keystroke delay":    c.KeystrokeDelay,
		"HTTP read timeout":  c.HTTPReadTimeout,
		"HTTP write timeout": c.HTTPWriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("invalid %s: %v (must not be negative)", name, d)
		}
	}
	return nil
}

// ProviderKind returns the validated provider kind.
func (c *Config) ProviderKind() a11y.Kind {
	k, err := a11y.ParseKind(c.Provider)
	if err != nil {
		return a11y.KindUIA
	}
	return k
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv where a set but empty variable wins, so a
// listener can be disabled from the environment.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected number)", key, value)
	}
	return f, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '30s', '5m')", key, value)
	}
	return d, nil
}
