package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/output"
)

var (
	logsAccess bool
	logsError  bool
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View VeloServe and agent logs",
	Long: `Show the veloctl agent log, or the VeloServe access or error log.

Examples:
  veloctl logs           # Show last 20 lines of the agent log
  veloctl logs --access  # Show the VeloServe access log
  veloctl logs --error   # Show the VeloServe error log
  veloctl logs -f        # Follow log output in real-time
  veloctl logs -n 50     # Show last 50 lines`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsAccess, "access", false, "Show the VeloServe access log")
	logsCmd.Flags().BoolVar(&logsError, "error", false, "Show the VeloServe error log")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 20, "Number of lines to show")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logsAccess && logsError {
		return fmt.Errorf("--access and --error are mutually exclusive")
	}

	logFile := cfg.LogFile
	switch {
	case logsAccess:
		logFile = filepath.Join(cfg.LogDir, "access.log")
	case logsError:
		logFile = filepath.Join(cfg.LogDir, "error.log")
	}

	if _, err := os.Stat(logFile); err != nil {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	// Build tail command
	tailArgs := []string{}
	if logsFollow {
		tailArgs = append(tailArgs, "-f")
	}
	tailArgs = append(tailArgs, "-n", fmt.Sprintf("%d", logsLines), logFile)

	// Find tail command
	tailPath, err := exec.LookPath("tail")
	if err != nil {
		return fmt.Errorf("tail command not found")
	}

	output.Info("Showing %s", logFile)
	output.Print("")

	// Run tail command
	tailCmd := exec.Command(tailPath, tailArgs...)
	tailCmd.Stdin = os.Stdin
	tailCmd.Stdout = os.Stdout
	tailCmd.Stderr = os.Stderr

	if err := tailCmd.Run(); err != nil {
		// Check for interrupt signals (130 = SIGINT/Ctrl+C, 143 = SIGTERM)
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode := exitErr.ExitCode()
			if exitCode == 130 || exitCode == 143 {
				return nil
			}
		}
		return fmt.Errorf("failed to read logs: %w", err)
	}

	return nil
}
