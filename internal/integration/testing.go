// Package integration runs the wizard engine end to end against a complete
// in-process gateway: embedded catalog, SQLite store, real probes and the
// event stream.
package integration

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/adapter/gateway"
	"vectorportal/internal/adapter/gatewayclient"
	"vectorportal/internal/adapter/probe"
	"vectorportal/internal/adapter/store"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/security"
	"vectorportal/internal/usecase/eventbus"
	"vectorportal/internal/usecase/wizard"
)

// Config holds integration test configuration from environment
type Config struct {
	GatewayURL         string
	GatewayToken       string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	TestTimeout        time.Duration
	SkipSlow           bool
}

// LoadConfig loads integration test configuration from environment
func LoadConfig() *Config {
	return &Config{
		GatewayURL:         os.Getenv("PORTAL_IT_GATEWAY_URL"),
		GatewayToken:       os.Getenv("PORTAL_IT_GATEWAY_TOKEN"),
		AWSAccessKeyID:     os.Getenv("PORTAL_IT_AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("PORTAL_IT_AWS_SECRET_ACCESS_KEY"),
		TestTimeout:        30 * time.Second,
		SkipSlow:           os.Getenv("SKIP_SLOW_TESTS") == "1",
	}
}

// SkipIfUnset skips the test if a required environment value is empty
func SkipIfUnset(t *testing.T, value, name string) {
	t.Helper()
	if value == "" {
		t.Skipf("Skipping: %s not set", name)
	}
}

// SkipIfShort skips integration tests in short mode
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// NewTestContext creates a context with timeout for integration tests
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Gateway is a running in-process gateway.
type Gateway struct {
	URL   string
	Token string
	Store *store.SQLite
	Bus   *eventbus.Bus
}

const testToken = "it-token"

// StartGateway serves a full gateway on a loopback port until the test
// ends. Secrets are encrypted at rest and probes may reach loopback
// addresses so local fakes can stand in for real providers.
func StartGateway(t *testing.T) *Gateway {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := Logger()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "portal.db"), "it-passphrase", logger)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	bus := eventbus.New(logger)
	prober := probe.New(security.TargetGuard{AllowPrivate: true}, logger, probe.WithTimeout(5*time.Second))

	svc := gateway.NewService(gateway.ServiceDeps{
		Catalog: cat,
		Store:   db,
		Prober:  prober,
		Bus:     bus,
		Logger:  logger,
	})
	srv := gateway.NewServer(svc, bus, "127.0.0.1:0", logger,
		gateway.WithAuth(gateway.NewStaticTokenAuth([]gateway.TokenEntry{{Token: testToken, Name: "integration"}})),
		gateway.WithVersion("it"),
	)
	ts := httptest.NewServer(srv.Handler(ctx))

	t.Cleanup(func() {
		ts.Close()
		cancel()
		bus.Close()
		db.Close()
	})
	return &Gateway{URL: ts.URL, Token: testToken, Store: db, Bus: bus}
}

// Client returns a gateway client authenticated against g.
func (g *Gateway) Client(t *testing.T) *gatewayclient.Client {
	t.Helper()
	return NewClient(t, g.URL, g.Token)
}

// NewClient creates a gateway client for url.
func NewClient(t *testing.T, url, token string) *gatewayclient.Client {
	t.Helper()
	c, err := gatewayclient.New(config.GatewayConfig{
		URL:     url,
		Token:   token,
		Timeout: 10 * time.Second,
	}, Logger())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

// NewDriver creates a wizard driver for flow talking to c.
func NewDriver(flow wizard.Flow, c *gatewayclient.Client) *wizard.Driver {
	return wizard.NewDriver(flow, wizard.NewRunner(c, Logger()), Logger())
}
