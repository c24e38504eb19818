package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/engine"
	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/switchover"
)

var reloadCmd = &cobra.Command{
	Use:   "reload [service]",
	Short: "Reload an engine's configuration",
	Long: `Ask an engine to re-read its configuration without dropping
connections. With no argument the engine that currently owns traffic is
reloaded.

Examples:
  veloctl reload
  veloctl reload veloserve
  veloctl reload apache`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var eng engine.Engine
	if len(args) > 0 {
		svc, err := switchover.ParseService(args[0])
		if err != nil {
			return err
		}
		eng = agent.VeloServe
		if svc == switchover.ServiceApache {
			eng = agent.Apache
		}
	} else {
		switch agent.Controller.ActiveService(ctx) {
		case switchover.StateVeloServeActive:
			eng = agent.VeloServe
		case switchover.StateApacheActive:
			eng = agent.Apache
		default:
			return errors.Validation("no stable traffic owner to reload, name a service explicitly")
		}
	}

	if !jsonOutput {
		output.Info("Reloading %s...", eng.Name())
	}
	if err := eng.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload %s: %w", eng.Name(), err)
	}

	return outputResult(
		map[string]interface{}{
			"success":  true,
			"service":  eng.Name(),
			"reloaded": true,
		},
		"%s reloaded", eng.Name(),
	)
}
