package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/apache"
	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/registry"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import Apache virtual hosts into the registry",
	Long: `Parse the local Apache configuration and merge its virtual hosts
into the VeloServe registry. Existing records win field by field; only
fields the registry leaves empty are filled from Apache. The same import
runs automatically when switching traffic to veloserve.

Examples:
  veloctl import
  veloctl import --dry-run`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&noReload, "no-reload", false, "Don't reload VeloServe after the change")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	if agent.Importer == nil {
		return errors.Validation("no local Apache configuration detected")
	}

	candidates, err := agent.Importer.Discover()
	if err != nil {
		return fmt.Errorf("failed to parse apache configuration: %w", err)
	}
	if len(candidates) == 0 {
		return outputResult(
			apache.ImportStats{},
			"No Apache virtual hosts found",
		)
	}

	ctx := context.Background()

	// Dry-run mode: merge into a throwaway copy and report the stats
	if dryRun {
		reg, err := agent.Repo.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to read registry: %w", err)
		}
		stats := agent.Importer.Merge(reg, candidates)
		return outputDryRun(&DryRunResult{
			Operations: []DryRunOperation{{
				Action:  "update_registry",
				Target:  agent.Repo.Path(),
				Details: fmt.Sprintf("%d new, %d updated, %d unchanged", stats.Imported, stats.Updated, stats.Unchanged),
			}},
		})
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	var stats apache.ImportStats
	err = agent.Repo.Update(ctx, func(reg *registry.Registry) error {
		stats = agent.Importer.Merge(reg, candidates)
		if stats.Total() == 0 {
			return registry.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update registry: %w", err)
	}

	if stats.Total() == 0 {
		return outputResult(stats, "Registry already up to date (%d unchanged)", stats.Unchanged)
	}

	reloadVeloServe(ctx, agent)

	return outputResult(stats, "Imported %d and updated %d vhost(s)", stats.Imported, stats.Updated)
}
