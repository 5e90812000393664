package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"vectorportal/internal/adapter/discovery"
	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/tui/uxerror"
	"vectorportal/internal/domain"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/infra/logger"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// gatewayProbe is the part of the gateway client the doctor exercises.
type gatewayProbe interface {
	Health(ctx context.Context) (string, error)
	Status(ctx context.Context) (gatewayapi.StatusResponse, error)
	CredentialProviders(ctx context.Context) ([]domain.ProviderCategory, error)
	VectorStoreCategories(ctx context.Context) ([]domain.ProviderCategory, error)
	BreakerState() gobreaker.State
}

const doctorTimeout = 5 * time.Second

// runDoctor executes all health checks and reports results.
func runDoctor(args []string) error {
	cfgPath := configPath(args)

	// Some checks work without a valid config.
	cfg, cfgErr := config.Load(cfgPath)
	if cfg != nil {
		if u, ok := flagValue(args, "--gateway"); ok {
			cfg.Gateway.URL = u
		}
	}

	var gw gatewayProbe
	if cfg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
		a := &app{cfg: cfg, log: logger.Discard()}
		if c, err := a.gatewayClient(ctx); err == nil {
			gw = c
		}
		cancel()
	}

	checks := doctorChecks(cfgPath, cfgErr, gw)

	fmt.Println("portal doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Println("\nFix the FAIL issues above before running the wizard.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Println("\nThe wizard should work, but consider addressing the warnings.")
	} else {
		fmt.Println("\nAll checks passed! The portal is ready.")
	}
	return nil
}

func doctorChecks(cfgPath string, cfgErr error, gw gatewayProbe) []Check {
	return []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Gateway discovery", Fn: checkDiscovery},
		{Name: "Gateway reachable", Fn: checkGatewayHealth(gw)},
		{Name: "Gateway access", Fn: checkGatewayAccess(gw)},
		{Name: "Provider catalog", Fn: checkCatalog(gw)},
		{Name: "Circuit breaker", Fn: checkBreaker(gw)},
		{Name: "Server store", Fn: checkServerStore},
		{Name: "Secrets at rest", Fn: checkSecrets},
	}
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

var noConfig = CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}

var noClient = CheckResult{
	Status:  StatusFail,
	Message: "no gateway client",
	Fix:     "Set gateway.url (or PORTAL_GATEWAY_URL) to the gateway address",
}

// checkConfigFile verifies the config file parses and validates. A missing
// file is fine: defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check " + cfgPath + " syntax and the PORTAL_* environment",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkDiscovery(cfg *config.Config) CheckResult {
	if cfg == nil {
		return noConfig
	}
	switch {
	case !cfg.Gateway.Discover:
		return CheckResult{Status: StatusPass, Message: "disabled, using " + cfg.Gateway.URL}
	case !discovery.Enabled:
		return CheckResult{
			Status:  StatusWarn,
			Message: "gateway.discover is set but this build has no mDNS support",
			Fix:     "Rebuild with -tags mdns or set gateway.url",
		}
	}
	return CheckResult{Status: StatusPass, Message: "mDNS lookup enabled"}
}

func checkGatewayHealth(gw gatewayProbe) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return noConfig
		}
		if gw == nil {
			return noClient
		}
		ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
		defer cancel()
		v, err := gw.Health(ctx)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: uxerror.Message(err),
				Fix:     "Start a gateway with 'portal serve' or check gateway.url",
			}
		}
		return CheckResult{Status: StatusPass, Message: "gateway version " + v}
	}
}

func checkGatewayAccess(gw gatewayProbe) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return noConfig
		}
		if gw == nil {
			return noClient
		}
		ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
		defer cancel()
		st, err := gw.Status(ctx)
		switch {
		case errors.Is(err, domain.ErrGatewayAuthFailed):
			return CheckResult{
				Status:  StatusFail,
				Message: "token rejected",
				Fix:     "Set gateway.token to one of the gateway's server.auth.tokens",
			}
		case err != nil:
			return CheckResult{Status: StatusFail, Message: uxerror.Message(err)}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%d credentials, %d vector stores stored", st.Credentials, st.VectorStores),
		}
	}
}

func checkCatalog(gw gatewayProbe) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return noConfig
		}
		if gw == nil {
			return noClient
		}
		ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
		defer cancel()
		creds, err := gw.CredentialProviders(ctx)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: "credential providers: " + uxerror.Message(err)}
		}
		stores, err := gw.VectorStoreCategories(ctx)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: "vector store providers: " + uxerror.Message(err)}
		}
		nc, uc := countProviders(creds)
		ns, us := countProviders(stores)
		if uc == 0 || us == 0 {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%d credential / %d vector store providers, none usable on one side", nc, ns),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%d/%d credential and %d/%d vector store providers available", uc, nc, us, ns),
		}
	}
}

func countProviders(cats []domain.ProviderCategory) (total, usable int) {
	for _, c := range cats {
		for _, p := range c.Providers {
			total++
			if p.Availability.Usable() {
				usable++
			}
		}
	}
	return total, usable
}

func checkBreaker(gw gatewayProbe) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return noConfig
		}
		if gw == nil {
			return noClient
		}
		switch st := gw.BreakerState(); st {
		case gobreaker.StateClosed:
			return CheckResult{Status: StatusPass, Message: "closed"}
		case gobreaker.StateHalfOpen:
			return CheckResult{Status: StatusWarn, Message: "half-open, gateway recovering"}
		default:
			return CheckResult{
				Status:  StatusFail,
				Message: st.String() + ", recent gateway calls failed",
				Fix:     fmt.Sprintf("Wait %s for the breaker to retry", cfg.Gateway.Breaker.Timeout),
			}
		}
	}
}

// checkServerStore verifies the directory for the gateway database exists
// or can be created.
func checkServerStore(cfg *config.Config) CheckResult {
	if cfg == nil {
		return noConfig
	}
	dir := filepath.Dir(cfg.Server.DBPath)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return CheckResult{
			Status:  StatusWarn,
			Message: dir + " does not exist yet",
			Fix:     "'portal serve' creates it on first start",
		}
	case err != nil:
		return CheckResult{Status: StatusFail, Message: err.Error()}
	case !info.IsDir():
		return CheckResult{Status: StatusFail, Message: dir + " is not a directory"}
	}
	return CheckResult{Status: StatusPass, Message: cfg.Server.DBPath}
}

func checkSecrets(cfg *config.Config) CheckResult {
	if cfg == nil {
		return noConfig
	}
	if cfg.Server.SecretsPassphrase == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "server.secrets_passphrase is empty, secrets are stored in plaintext",
			Fix:     "Set PORTAL_SERVER_SECRETS_PASSPHRASE or seal one with 'portal seal'",
		}
	}
	return CheckResult{Status: StatusPass, Message: "password-kind values are encrypted"}
}
