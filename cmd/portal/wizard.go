package main

import (
	"fmt"

	"vectorportal/internal/adapter/tui/setup"
	"vectorportal/internal/usecase/wizard"
)

// runWizard runs the interactive wizard for one flow.
func runWizard(flowName string, args []string) error {
	flow, ok := wizard.ParseFlow(flowName)
	if !ok {
		return fmt.Errorf("unknown flow %q", flowName)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootstrap(ctx, args, "portal-wizard", true)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.gatewayClient(ctx)
	if err != nil {
		return err
	}

	runner := wizard.NewRunner(client, a.log, wizard.WithEffectTimeout(a.cfg.Gateway.Timeout))
	s, err := setup.Run(ctx, flow, runner, a.log, setup.WithGatewayLabel(client.BaseURL()))
	if err != nil {
		return err
	}

	switch {
	case s.Done:
		fmt.Printf("%s created", flow.Subject())
		if s.CreatedID != "" {
			fmt.Printf(" (id %s)", s.CreatedID)
		}
		fmt.Println()
	case s.Cancelled:
		fmt.Println("Cancelled.")
	}
	return nil
}
