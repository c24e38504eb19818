package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/unknwon/com"

	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/sslbind"
)

var showCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show details of a virtual host",
	Long: `Show the registry record of one virtual host, including the on-disk
state of its SSL certificate.

Examples:
  veloctl show example.com
  veloctl show example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// showDetail represents the detailed vhost information for output
type showDetail struct {
	Domain      string     `json:"domain"`
	Owner       string     `json:"owner,omitempty"`
	Root        string     `json:"root,omitempty"`
	Platform    string     `json:"platform,omitempty"`
	SSL         bool       `json:"ssl"`
	SSLCert     string     `json:"ssl_cert,omitempty"`
	SSLKey      string     `json:"ssl_key,omitempty"`
	CertPresent bool       `json:"cert_present,omitempty"`
	KeyPresent  bool       `json:"key_present,omitempty"`
	SSLExpires  *time.Time `json:"ssl_expires,omitempty"`
	SSLIssuer   string     `json:"ssl_issuer,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	domain := args[0]

	// Validate domain
	if err := validateDomain(domain); err != nil {
		return err
	}

	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	reg, err := agent.Repo.Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	rec, ok := reg.Get(domain)
	if !ok {
		return errors.NotFound(domain)
	}

	// Build detail struct
	detail := showDetail{
		Domain:   rec.Domain,
		Owner:    rec.Owner(),
		Root:     rec.Root,
		Platform: rec.Platform,
		SSL:      rec.HasSSL(),
		SSLCert:  rec.SSLCertificate,
		SSLKey:   rec.SSLCertificateKey,
	}

	if rec.SSLCertificate != "" {
		detail.CertPresent = com.IsFile(rec.SSLCertificate)
	}
	if rec.SSLCertificateKey != "" {
		detail.KeyPresent = com.IsFile(rec.SSLCertificateKey)
	}
	if detail.CertPresent {
		if notAfter, issuer, err := sslbind.CertDetails(rec.SSLCertificate); err == nil {
			detail.SSLExpires = &notAfter
			detail.SSLIssuer = issuer
		}
	}

	// Output JSON if requested
	if jsonOutput {
		return output.JSON(detail)
	}

	// Human-readable output
	output.Print("")
	output.Print("Domain:     %s", detail.Domain)

	if detail.Owner != "" {
		output.Print("Owner:      %s", detail.Owner)
	}
	if detail.Root != "" {
		output.Print("Root:       %s", detail.Root)
	}
	if detail.Platform != "" {
		output.Print("Platform:   %s", detail.Platform)
	}

	if detail.SSL {
		output.Print("SSL:        enabled")
		output.Print("  Cert:     %s%s", detail.SSLCert, missingSuffix(detail.CertPresent))
		output.Print("  Key:      %s%s", detail.SSLKey, missingSuffix(detail.KeyPresent))
		if detail.SSLExpires != nil {
			output.Print("  Expires:  %s", detail.SSLExpires.Format("2006-01-02"))
		}
		if detail.SSLIssuer != "" {
			output.Print("  Issuer:   %s", detail.SSLIssuer)
		}
	} else {
		output.Print("SSL:        disabled")
	}

	output.Print("")
	return nil
}

func missingSuffix(present bool) string {
	if present {
		return ""
	}
	return " (missing)"
}
