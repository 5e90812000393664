package config

import (
	"strings"
	"testing"
)

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%q does not contain %q", s, substr)
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no url", func(c *Config) { c.Gateway.URL = "" }, "gateway.url must be set"},
		{"relative url", func(c *Config) { c.Gateway.URL = "localhost:8600" }, "must be an absolute http(s) URL"},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }, "gateway.timeout must be > 0"},
		{"rate without burst", func(c *Config) { c.Gateway.Burst = 0 }, "gateway.burst must be > 0"},
		{"breaker failures", func(c *Config) { c.Gateway.Breaker.MaxFailures = 0 }, "max_failures must be > 0"},
		{"server addr", func(c *Config) { c.Server.Addr = "8600" }, "is not host:port"},
		{"db path", func(c *Config) { c.Server.DBPath = "" }, "server.db_path must not be empty"},
		{"probe timeout", func(c *Config) { c.Server.ProbeTimeout = 0 }, "server.probe_timeout must be > 0"},
		{"empty token", func(c *Config) { c.Server.Auth.Tokens = []TokenConfig{{Name: "x"}} }, "tokens[0].token must not be empty"},
		{"duplicate token name", func(c *Config) {
			c.Server.Auth.Tokens = []TokenConfig{{Token: "a", Name: "x"}, {Token: "b", Name: "x"}}
		}, `tokens[1].name "x" is duplicated`},
		{"log level", func(c *Config) { c.Logger.Level = "loud" }, `logger.level "loud"`},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml"`},
		{"exporter", func(c *Config) { c.Tracer.Exporter = "jaeger" }, `tracer.exporter "jaeger"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDiscoverWithoutURL(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.URL = ""
	cfg.Gateway.Discover = true
	if err := Validate(cfg); err != nil {
		t.Fatalf("discovery without url should pass: %v", err)
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Timeout = 0
	cfg.Server.DBPath = ""

	err := Validate(cfg)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("err = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(ve.Errors), ve.Errors)
	}
}
