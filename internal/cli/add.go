package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
)

var (
	vhostRoot     string
	vhostPlatform string
	addSSLCert    string
	addSSLKey     string
	noReload      bool
)

var addCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add or update a virtual host in the registry",
	Long: `Add a virtual host to the VeloServe registry, or update it in place
when the domain is already registered. Fields of an existing block that
the flags leave empty are preserved, and unrelated blocks are never
rewritten.

Examples:
  veloctl add example.com --root /home/alice/public_html
  veloctl add example.com --root /var/www/example --platform wordpress
  veloctl add example.com --root /var/www/example --ssl-cert /etc/ssl/example.crt --ssl-key /etc/ssl/example.key`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&vhostRoot, "root", "r", "", "Document root path (required)")
	addCmd.Flags().StringVarP(&vhostPlatform, "platform", "p", "", "Platform hint (wordpress, laravel, ...)")
	addCmd.Flags().StringVar(&addSSLCert, "ssl-cert", "", "SSL certificate path")
	addCmd.Flags().StringVar(&addSSLKey, "ssl-key", "", "SSL certificate key path")
	addCmd.Flags().BoolVar(&noReload, "no-reload", false, "Don't reload VeloServe after the change")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	domain := args[0]

	if err := validateDomain(domain); err != nil {
		return err
	}
	if vhostRoot == "" {
		return fmt.Errorf("--root is required")
	}
	if err := validateRoot(vhostRoot); err != nil {
		return err
	}
	if (addSSLCert == "") != (addSSLKey == "") {
		return fmt.Errorf("--ssl-cert and --ssl-key must be set together")
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	rec := registry.Record{
		Domain:            domain,
		Root:              vhostRoot,
		Platform:          vhostPlatform,
		SSLCertificate:    addSSLCert,
		SSLCertificateKey: addSSLKey,
	}

	// Dry-run mode: show what would be done without making changes
	if dryRun {
		return outputAddDryRun(agent, rec)
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	ctx := context.Background()
	created, err := agent.Repo.AddOrUpdate(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to update registry: %w", err)
	}

	reloadVeloServe(ctx, agent)

	action := "updated"
	if created {
		action = "added"
	}
	return outputResult(
		map[string]interface{}{
			"success": true,
			"domain":  domain,
			"action":  action,
			"root":    vhostRoot,
		},
		"VHost %s %s", domain, action,
	)
}

// outputAddDryRun outputs what add command would do in dry-run mode
func outputAddDryRun(agent *Agent, rec registry.Record) error {
	preview := registry.Parse(nil, logger.NilLogger{})
	preview.Upsert(rec)

	operations := []DryRunOperation{
		{
			Action:  "update_registry",
			Target:  agent.Repo.Path(),
			Details: fmt.Sprintf("Add or update [[virtualhost]] block for %s", rec.Domain),
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
		Domain:        rec.Domain,
		Operations:    operations,
		ConfigPreview: string(preview.Serialize()),
	})
}
