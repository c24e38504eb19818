package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/switchover"
)

var switchCmd = &cobra.Command{
	Use:   "switch <service>",
	Short: "Switch which engine owns web traffic",
	Long: `Switch web traffic between VeloServe and Apache.

The switchover stops the currently serving engine, starts the target and
moves watchdog monitoring over, rolling the completed steps back when one
fails. Switching to veloserve first imports Apache virtual hosts that are
missing from the registry, so no site is lost.

Examples:
  veloctl switch veloserve
  veloctl switch apache
  veloctl switch veloserve --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func init() {
	rootCmd.AddCommand(switchCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	target, err := switchover.ParseService(args[0])
	if err != nil {
		return err
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	// Dry-run mode: show the step plan without touching any service
	if dryRun {
		return outputSwitchDryRun(agent, target)
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	// An interrupt mid-switch cancels the remaining steps; the rollback
	// itself runs detached and still restores the previous owner.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonOutput {
		output.Info("Switching web traffic to %s...", target)
	}

	res, err := agent.Controller.SwitchTo(ctx, target)
	if err != nil {
		if res != nil {
			output.Error("Switch failed, traffic owner is now %s", res.State)
		}
		return err
	}

	if res.NoOp {
		return outputResult(res, "%s already owns web traffic", target)
	}
	return outputResult(res, "Web traffic switched to %s", target)
}

// outputSwitchDryRun outputs the step plan in dry-run mode
func outputSwitchDryRun(agent *Agent, target switchover.Service) error {
	steps := agent.Controller.Plan(target)

	operations := make([]DryRunOperation, 0, len(steps))
	for _, name := range steps {
		operations = append(operations, DryRunOperation{
			Action: "run_step",
			Target: name,
		})
	}

	return outputDryRun(&DryRunResult{
		Target:     string(target),
		Operations: operations,
	})
}
