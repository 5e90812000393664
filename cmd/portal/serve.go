package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"vectorportal/internal/adapter/catalog"
	"vectorportal/internal/adapter/discovery"
	"vectorportal/internal/adapter/gateway"
	"vectorportal/internal/adapter/probe"
	"vectorportal/internal/adapter/store"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/infra/middleware"
	"vectorportal/internal/security"
	"vectorportal/internal/usecase/eventbus"
)

// runServe runs the reference gateway until interrupted.
func runServe(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootstrap(ctx, args, "portal-gateway", false)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg.Server
	if addr, ok := flagValue(args, "--addr"); ok {
		cfg.Addr = addr
	}

	// 1. Catalog
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// 2. Store
	db, err := store.Open(ctx, cfg.DBPath, cfg.SecretsPassphrase, a.log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()
	if !db.Encrypted() {
		a.log.Warn("secrets are stored in plaintext; set server.secrets_passphrase to encrypt them")
	}

	// 3. Event bus
	bus := eventbus.New(a.log)
	defer bus.Close()

	// 4. Prober
	guard := security.TargetGuard{AllowPrivate: cfg.ProbeAllowPrivate, DialTimeout: cfg.ProbeTimeout}
	prober := probe.New(guard, a.log, probe.WithTimeout(cfg.ProbeTimeout))

	// 5. Service and server
	svc := gateway.NewService(gateway.ServiceDeps{
		Catalog: cat,
		Store:   db,
		Prober:  prober,
		Bus:     bus,
		Logger:  a.log,
	})

	opts := []gateway.Option{
		gateway.WithVersion(version),
		gateway.WithRateLimit(middleware.RateLimitConfig{
			RequestsPerMin: cfg.RateLimit.RequestsPerMin,
			BurstSize:      cfg.RateLimit.Burst,
			TrustedProxies: cfg.RateLimit.TrustedProxies,
		}),
	}
	if auth := serverAuth(cfg.Auth); auth != nil {
		opts = append(opts, gateway.WithAuth(auth))
	} else {
		a.log.Warn("no server.auth.tokens configured; the gateway API is open to anyone who can reach it")
	}
	if cfg.MDNS {
		opts = append(opts, gateway.WithOnListen(func(addr net.Addr) {
			go advertise(ctx, a, addr, len(cfg.Auth.Tokens) > 0)
		}))
	}

	srv := gateway.NewServer(svc, bus, cfg.Addr, a.log, opts...)
	a.log.Info("portal gateway starting",
		"addr", cfg.Addr,
		"db", cfg.DBPath,
		"encrypted", db.Encrypted(),
		"mdns", cfg.MDNS && discovery.Enabled,
	)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	// Wait for in-flight requests before the store closes.
	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(stopCtx); err != nil {
		a.log.Debug("gateway stop", "error", err)
	}
	a.log.Info("portal gateway stopped")
	return nil
}

func serverAuth(cfg config.AuthConfig) *gateway.StaticTokenAuth {
	entries := make([]gateway.TokenEntry, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		if t.Token != "" {
			entries = append(entries, gateway.TokenEntry{Token: t.Token, Name: t.Name})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	return gateway.NewStaticTokenAuth(entries)
}

// advertise announces the gateway over mDNS until ctx ends.
func advertise(ctx context.Context, a *app, addr net.Addr, auth bool) {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		a.log.Warn("mdns: cannot parse listen address", "addr", addr.String(), "error", err)
		return
	}
	port, _ := strconv.Atoi(portStr)
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "portal"
	}
	meta := map[string]string{"version": version, "auth": strconv.FormatBool(auth)}
	if err := discovery.New(a.log).Advertise(ctx, name, port, meta); err != nil {
		a.log.Warn("mdns advertise failed", "error", err)
	}
}
