package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/output"
)

var (
	forceRemove bool
)

var removeCmd = &cobra.Command{
	Use:     "remove <domain>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a virtual host from the registry",
	Long: `Remove a virtual host block from the VeloServe registry. The rest of
the file, including comments and malformed blocks, is left untouched.

Examples:
  veloctl remove example.com
  veloctl rm example.com --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "Force removal without confirmation")
	removeCmd.Flags().BoolVar(&noReload, "no-reload", false, "Don't reload VeloServe after the change")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	domain := args[0]

	// Validate domain
	if err := validateDomain(domain); err != nil {
		return err
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	// Dry-run mode: show what would be done without making changes
	if dryRun {
		return outputRemoveDryRun(agent, domain)
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	// Confirm removal if not forced
	if !forceRemove {
		output.Print("Are you sure you want to remove vhost '%s'? [y/N]: ", domain)
		answer, _ := deps.StdinReader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			output.Info("Removal cancelled")
			return nil
		}
	}

	ctx := context.Background()
	removed, err := agent.Repo.Remove(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to remove vhost: %w", err)
	}
	if !removed {
		return errors.NotFound(domain)
	}

	reloadVeloServe(ctx, agent)

	return outputResult(
		map[string]interface{}{
			"success": true,
			"domain":  domain,
			"removed": true,
		},
		"VHost %s removed", domain,
	)
}

// outputRemoveDryRun outputs what remove command would do in dry-run mode
func outputRemoveDryRun(agent *Agent, domain string) error {
	operations := []DryRunOperation{
		{
			Action:  "update_registry",
			Target:  agent.Repo.Path(),
			Details: fmt.Sprintf("Remove [[virtualhost]] block for %s", domain),
		},
	}
	if !noReload {
		operations = append(operations, DryRunOperation{
			Action:  "reload_service",
			Target:  "veloserve",
			Details: "Apply registry changes",
		})
	}

	return outputDryRun(&DryRunResult{
		Domain:     domain,
		Operations: operations,
	})
}
