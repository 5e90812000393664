package main

import (
	"fmt"

	"vectorportal/internal/adapter/tui/components"
	"vectorportal/internal/adapter/tui/dashboard"
	"vectorportal/internal/domain"
)

// runWatch monitors gateway events, in the dashboard or as plain lines.
func runWatch(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	plain := hasFlag(args, "--plain")
	a, err := bootstrap(ctx, args, "portal-watch", !plain)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.gatewayClient(ctx)
	if err != nil {
		return err
	}

	if plain {
		fmt.Printf("Watching %s (Ctrl+C to stop)\n", client.BaseURL())
		return client.Watch(ctx, func(evt domain.Event) {
			fmt.Println(components.FormatEvent(evt))
		})
	}

	deps := dashboard.DashboardDeps{Status: client, Gateway: client.BaseURL()}
	return dashboard.Run(ctx, deps, client, a.log)
}
