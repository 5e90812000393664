package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateGateway(cfg, ve)
	validateServer(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateGateway(cfg *Config, ve *ValidationError) {
	g := cfg.Gateway
	if g.URL == "" && !g.Discover {
		ve.Add("gateway.url must be set unless gateway.discover is enabled")
	}
	if g.URL != "" {
		u, err := url.Parse(g.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			ve.Add("gateway.url %q must be an absolute http(s) URL", g.URL)
		}
	}
	if g.Timeout <= 0 {
		ve.Add("gateway.timeout must be > 0")
	}
	if g.RateLimit < 0 {
		ve.Add("gateway.rate_limit must be >= 0")
	}
	if g.RateLimit > 0 && g.Burst <= 0 {
		ve.Add("gateway.burst must be > 0 when rate_limit is set")
	}
	if g.Breaker.MaxFailures == 0 {
		ve.Add("gateway.circuit_breaker.max_failures must be > 0")
	}
	if g.Breaker.Timeout <= 0 {
		ve.Add("gateway.circuit_breaker.timeout must be > 0")
	}
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Addr == "" {
		ve.Add("server.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		ve.Add("server.addr %q is not host:port: %v", s.Addr, err)
	}
	if s.DBPath == "" {
		ve.Add("server.db_path must not be empty")
	}
	if s.ProbeTimeout <= 0 {
		ve.Add("server.probe_timeout must be > 0")
	}
	if s.RateLimit.RequestsPerMin < 0 || s.RateLimit.Burst < 0 {
		ve.Add("server.rate_limit values must be >= 0")
	}
	if s.RateLimit.RequestsPerMin > 0 && s.RateLimit.Burst == 0 {
		ve.Add("server.rate_limit.burst must be > 0 when requests_per_min is set")
	}
	seen := make(map[string]bool, len(s.Auth.Tokens))
	for i, t := range s.Auth.Tokens {
		if t.Token == "" {
			ve.Add("server.auth.tokens[%d].token must not be empty", i)
		}
		if t.Name == "" {
			ve.Add("server.auth.tokens[%d].name must not be empty", i)
		} else if seen[t.Name] {
			ve.Add("server.auth.tokens[%d].name %q is duplicated", i, t.Name)
		}
		seen[t.Name] = true
	}
}

var validLogLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q must be noop or stdout", cfg.Tracer.Exporter)
	}
}
