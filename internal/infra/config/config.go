package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vectorportal/internal/security"
)

// Config is the top-level portal configuration.
type Config struct {
	Gateway  GatewayConfig `yaml:"gateway"`
	Server   ServerConfig  `yaml:"server"`
	Logger   LoggerConfig  `yaml:"logger"`
	Tracer   TracerConfig  `yaml:"tracer"`
	Includes []string      `yaml:"includes,omitempty"`
}

// GatewayConfig configures the client side: where the wizard finds the
// Schema Provider Gateway and how it talks to it.
type GatewayConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the client request budget per second. 0 disables throttling.
	RateLimit float64              `yaml:"rate_limit"`
	Burst     int                  `yaml:"burst"`
	Breaker   CircuitBreakerConfig `yaml:"circuit_breaker"`
	// Discover looks the gateway up over mDNS when URL is empty.
	Discover bool `yaml:"discover"`
}

// CircuitBreakerConfig holds circuit breaker settings for gateway calls.
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// ServerConfig configures the reference gateway served by `portal serve`.
type ServerConfig struct {
	Addr   string     `yaml:"addr"`
	DBPath string     `yaml:"db_path"`
	Auth   AuthConfig `yaml:"auth"`
	// SecretsPassphrase derives the key that encrypts password-kind values
	// at rest. Empty stores them in plaintext.
	SecretsPassphrase string          `yaml:"secrets_passphrase"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	ProbeTimeout      time.Duration   `yaml:"probe_timeout"`
	// ProbeAllowPrivate lets connection tests reach private and loopback
	// addresses.
	ProbeAllowPrivate bool `yaml:"probe_allow_private"`
	MDNS              bool `yaml:"mdns"`
}

// AuthConfig holds server authentication settings.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single server auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// RateLimitConfig holds per-client server rate limits.
type RateLimitConfig struct {
	RequestsPerMin int      `yaml:"requests_per_min"`
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// DefaultPath returns $HOME/.vectorportal/config.yaml, or ./portal.yaml when
// the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "portal.yaml"
	}
	return filepath.Join(home, ".vectorportal", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".vectorportal", "data")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Gateway: GatewayConfig{
			URL:       "http://127.0.0.1:8600",
			Timeout:   30 * time.Second,
			RateLimit: 20,
			Burst:     10,
			Breaker: CircuitBreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Server: ServerConfig{
			Addr:   "127.0.0.1:8600",
			DBPath: filepath.Join(defaultDataDir(), "portal.db"),
			RateLimit: RateLimitConfig{
				RequestsPerMin: 600,
				Burst:          50,
			},
			ProbeTimeout: 10 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file over the defaults, applies PORTAL_* env
// overrides, decrypts enc: secrets and validates the result. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Includes) > 0 {
			if err := processIncludes(cfg, filepath.Dir(absPath), map[string]bool{absPath: true}, 0); err != nil {
				return nil, err
			}
			// The main file wins over its includes.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config (second pass): %w", err)
			}
			cfg.Includes = nil
		}
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("PORTAL_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps PORTAL_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORTAL_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("PORTAL_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("PORTAL_GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.Timeout = d
		}
	}
	if v := os.Getenv("PORTAL_GATEWAY_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Gateway.RateLimit = f
		}
	}
	if v := os.Getenv("PORTAL_GATEWAY_DISCOVER"); v == "true" {
		cfg.Gateway.Discover = true
	}
	if v := os.Getenv("PORTAL_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PORTAL_SERVER_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("PORTAL_SERVER_SECRETS_PASSPHRASE"); v != "" {
		cfg.Server.SecretsPassphrase = v
	}
	if v := os.Getenv("PORTAL_SERVER_TOKENS"); v != "" {
		cfg.Server.Auth.Tokens = nil
		for i, tok := range splitAndTrim(v, ",") {
			if tok == "" {
				continue
			}
			cfg.Server.Auth.Tokens = append(cfg.Server.Auth.Tokens, TokenConfig{Token: tok, Name: fmt.Sprintf("env-%d", i+1)})
		}
	}
	if v := os.Getenv("PORTAL_SERVER_PROBE_ALLOW_PRIVATE"); v == "true" {
		cfg.Server.ProbeAllowPrivate = true
	}
	if v := os.Getenv("PORTAL_SERVER_MDNS"); v == "true" {
		cfg.Server.MDNS = true
	}
	if v := os.Getenv("PORTAL_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PORTAL_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("PORTAL_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("PORTAL_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("PORTAL_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// decryptSecrets opens every "enc:" value among the tokens and passphrases.
func decryptSecrets(cfg *Config, passphrase string) error {
	fields := map[string]*string{
		"gateway.token":             &cfg.Gateway.Token,
		"server.secrets_passphrase": &cfg.Server.SecretsPassphrase,
	}
	for i := range cfg.Server.Auth.Tokens {
		fields["server.auth.tokens."+cfg.Server.Auth.Tokens[i].Name] = &cfg.Server.Auth.Tokens[i].Token
	}
	for name, fp := range fields {
		if !security.IsSealedValue(*fp) {
			continue
		}
		plain, err := security.OpenValue(*fp, passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fp = plain
	}
	return nil
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
