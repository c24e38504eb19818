package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/hooks"
	"github.com/veloserve/veloctl/internal/input"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/output"
)

var hookDescribe bool

// hookStdin is swapped out in tests.
var hookStdin io.Reader = os.Stdin

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle a panel lifecycle event from stdin",
	Long: `Receive one panel lifecycle event on stdin and apply it to the
registry. The panel invokes this entry point for account and SSL events;
it is not meant to be run by hand.

With --describe, print the subscription list the panel needs to register
the hook and exit.

Examples:
  veloctl hook --describe
  echo '{"context":{"event":"Accounts::Create"},"data":{"user":"alice","domain":"example.com"}}' | veloctl hook`,
	RunE: runHook,
}

func init() {
	hookCmd.Flags().BoolVar(&hookDescribe, "describe", false, "Print hook subscriptions for panel registration")
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	if hookDescribe {
		return output.JSON(hooks.Describe(hookCommandLine()))
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	// A failed read must not wedge the panel operation that fired the
	// hook, so it is logged and swallowed.
	data, err := input.ReadEvent(hookStdin)
	if err != nil {
		logger.Warning("hook: reading event failed: %v", err)
		return nil
	}

	event, err := hooks.ParseEvent(data)
	if err != nil {
		logger.Warning("hook: %v", err)
		return nil
	}

	outcome, err := agent.Dispatcher.Dispatch(context.Background(), event)
	if err != nil {
		return fmt.Errorf("hook %s failed: %w", event.Key(), err)
	}

	logger.Debug("hook: %s -> %s", event.Key(), outcome)
	return nil
}

func hookCommandLine() string {
	exe, err := os.Executable()
	if err != nil {
		exe = "veloctl"
	}
	return exe + " hook"
}
