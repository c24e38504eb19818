package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/sslbind"
)

var (
	sslCertFlag string
	sslKeyFlag  string
)

var sslCmd = &cobra.Command{
	Use:   "ssl",
	Short: "SSL certificate bindings",
	Long:  `Manage SSL certificate bindings in the VeloServe registry.`,
}

var sslBindCmd = &cobra.Command{
	Use:   "bind <domain>",
	Short: "Bind an installed certificate to a domain",
	Long: `Bind certificate and key paths to a registered domain.

The domain must match a registry record exactly; certificates for domains
the registry does not manage are skipped, because the panel keeps serving
those through Apache. VeloServe is reloaded after a successful bind.

Examples:
  veloctl ssl bind example.com --cert /etc/ssl/example.crt --key /etc/ssl/example.key`,
	Args: cobra.ExactArgs(1),
	RunE: runSSLBind,
}

var sslStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show certificate bindings and expiry",
	Long: `Show every registry record that carries SSL fields, with on-disk
file presence and certificate expiry.

Examples:
  veloctl ssl status
  veloctl ssl status --json`,
	RunE: runSSLStatus,
}

func init() {
	sslBindCmd.Flags().StringVar(&sslCertFlag, "cert", "", "Certificate path (required)")
	sslBindCmd.Flags().StringVar(&sslKeyFlag, "key", "", "Certificate key path (required)")
	sslBindCmd.MarkFlagRequired("cert")
	sslBindCmd.MarkFlagRequired("key")

	sslCmd.AddCommand(sslBindCmd)
	sslCmd.AddCommand(sslStatusCmd)

	rootCmd.AddCommand(sslCmd)
}

func runSSLBind(cmd *cobra.Command, args []string) error {
	domain := args[0]

	// Validate domain
	if err := validateDomain(domain); err != nil {
		return err
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	bound, err := agent.SSL.Bind(context.Background(), domain, sslCertFlag, sslKeyFlag)
	if err != nil {
		return err
	}

	if !bound {
		if jsonOutput {
			return output.JSON(map[string]interface{}{
				"success": true,
				"domain":  domain,
				"bound":   false,
			})
		}
		output.Warn("Domain %s is not in the registry, nothing to bind", domain)
		return nil
	}

	return outputResult(
		map[string]interface{}{
			"success": true,
			"domain":  domain,
			"bound":   true,
			"cert":    sslCertFlag,
			"key":     sslKeyFlag,
		},
		"SSL certificate bound for %s", domain,
	)
}

func runSSLStatus(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	bindings, err := agent.SSL.Bindings(context.Background())
	if err != nil {
		return err
	}

	if len(bindings) == 0 {
		if jsonOutput {
			return output.JSON([]sslbind.Binding{})
		}
		output.Info("No SSL bindings in the registry")
		return nil
	}

	if jsonOutput {
		return output.JSON(bindings)
	}

	headers := []string{"DOMAIN", "CERT", "EXPIRES", "STATUS"}
	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		expires := "-"
		if !b.NotAfter.IsZero() {
			expires = b.NotAfter.Format("2006-01-02")
		}
		rows = append(rows, []string{b.Domain, b.CertPath, expires, bindingStatus(b)})
	}
	output.Table(headers, rows)
	return nil
}

func bindingStatus(b sslbind.Binding) string {
	switch {
	case !b.CertPresent || !b.KeyPresent:
		return "missing files"
	case b.NotAfter.IsZero():
		return "unreadable"
	case time.Until(b.NotAfter) < 0:
		return "expired"
	case time.Until(b.NotAfter) < 30*24*time.Hour:
		return "expiring soon"
	default:
		return "ok"
	}
}
