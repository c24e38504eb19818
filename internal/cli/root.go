package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/logger"
)

var (
	jsonOutput bool
	verbose    bool
	dryRun     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "veloctl",
	Short: "VeloServe management agent",
	Long: `veloctl manages a VeloServe web server alongside Apache on a panel host.

It maintains the VeloServe virtual host registry, reacts to panel account
and SSL lifecycle events, binds certificates, and switches which engine
owns web traffic.`,
}

// Execute runs the root command
func Execute() {
	// Initialize logger based on verbose flag (parsed by cobra)
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show planned actions without applying them")
}
