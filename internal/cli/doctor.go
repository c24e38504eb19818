package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/unknwon/com"

	"github.com/veloserve/veloctl/internal/config"
	"github.com/veloserve/veloctl/internal/executor"
	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/switchover"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"check"},
	Short:   "Check agent health and diagnose issues",
	Long: `Run diagnostic checks on the host and the registry.

Checks:
  - VeloServe and Apache binaries
  - systemctl availability and the watchdog directory
  - Which engine owns web traffic
  - Registry file parse state
  - Per-vhost document roots and SSL files

Examples:
  veloctl doctor
  veloctl doctor --json`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Status  string `json:"status"` // "success", "warning", "error"
	Message string `json:"message"`
}

// VHostCheck represents the diagnostic state of a single vhost
type VHostCheck struct {
	Domain string        `json:"domain"`
	Checks []CheckResult `json:"checks"`
}

// DoctorReport contains all diagnostic results
type DoctorReport struct {
	System        []CheckResult `json:"system"`
	Configuration []CheckResult `json:"configuration"`
	VHosts        []VHostCheck  `json:"vhosts"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, agent, err := loadAgent()
	if err != nil {
		return err
	}

	exec := executor.NewSystemExecutor()
	ctx := context.Background()

	// Run all checks
	report := &DoctorReport{}
	report.System = checkSystem(ctx, exec, cfg, agent)
	report.Configuration = checkConfiguration(ctx, cfg, agent)
	report.VHosts = checkVHosts(ctx, agent)

	// Output results
	if jsonOutput {
		return output.JSON(report)
	}

	displayDoctorResults(report)
	return nil
}

func checkSystem(ctx context.Context, exec executor.CommandExecutor, cfg *config.Config, agent *Agent) []CheckResult {
	results := []CheckResult{}

	// VeloServe binary
	if _, err := exec.LookPath(cfg.VeloServeBin); err == nil {
		version, verr := agent.VeloServe.Version(ctx)
		if verr != nil {
			version = "unknown"
		}
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("VeloServe installed (%s)", version),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "error",
			Message: "VeloServe not installed",
		})
	}

	// Apache control binary: a VeloServe-only host is fine
	if _, err := exec.LookPath("apachectl"); err == nil {
		version, verr := agent.Apache.Version(ctx)
		if verr != nil {
			version = "unknown"
		}
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Apache installed (%s)", version),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "Apache not installed (optional)",
		})
	}

	// systemctl
	if _, err := exec.LookPath("systemctl"); err == nil {
		results = append(results, CheckResult{
			Status:  "success",
			Message: "systemctl available",
		})
	} else {
		results = append(results, CheckResult{
			Status:  "error",
			Message: "systemctl not found",
		})
	}

	// Watchdog directory
	if info, err := os.Stat(cfg.ChkservdDir); err == nil && info.IsDir() {
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Watchdog directory exists (%s)", cfg.ChkservdDir),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "Watchdog directory missing, monitor handoff will be skipped",
		})
	}

	// Traffic owner
	state := agent.Controller.ActiveService(ctx)
	switch state {
	case switchover.StateVeloServeActive:
		results = append(results, CheckResult{
			Status:  "success",
			Message: "VeloServe owns web traffic",
		})
	case switchover.StateApacheActive:
		results = append(results, CheckResult{
			Status:  "success",
			Message: "Apache owns web traffic",
		})
	case switchover.StateTransitioning:
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "Switchover in progress",
		})
	default:
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "No stable traffic owner detected",
		})
	}

	// Monitoring should follow the traffic owner
	var activeUnit, idleUnit string
	switch state {
	case switchover.StateVeloServeActive:
		activeUnit, idleUnit = cfg.VeloServeUnit, cfg.ApacheUnit
	case switchover.StateApacheActive:
		activeUnit, idleUnit = cfg.ApacheUnit, cfg.VeloServeUnit
	}
	if activeUnit != "" {
		if monitored, err := agent.Watchdog.IsMonitored(activeUnit); err == nil && !monitored {
			results = append(results, CheckResult{
				Status:  "warning",
				Message: fmt.Sprintf("Active service %s is not monitored", activeUnit),
			})
		}
		if monitored, err := agent.Watchdog.IsMonitored(idleUnit); err == nil && monitored {
			results = append(results, CheckResult{
				Status:  "warning",
				Message: fmt.Sprintf("Idle service %s is still monitored", idleUnit),
			})
		}
	}

	return results
}

func checkConfiguration(ctx context.Context, cfg *config.Config, agent *Agent) []CheckResult {
	results := []CheckResult{}

	// Config file is optional, defaults apply without it
	if com.IsFile(cfg.ConfigFilePath) {
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Config file exists (%s)", cfg.ConfigFilePath),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "Config file not found, defaults apply",
		})
	}

	// Registry parse state
	reg, err := agent.Repo.Load(ctx)
	switch {
	case err != nil:
		results = append(results, CheckResult{
			Status:  "error",
			Message: fmt.Sprintf("Registry unreadable: %v", err),
		})
	case !com.IsFile(agent.Repo.Path()):
		results = append(results, CheckResult{
			Status:  "warning",
			Message: "Registry file not found, treated as empty",
		})
	case reg.MalformedBlocks() > 0:
		results = append(results, CheckResult{
			Status:  "warning",
			Message: fmt.Sprintf("Registry has %d malformed block(s)", reg.MalformedBlocks()),
		})
	default:
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Registry OK (%d vhosts)", len(reg.Records())),
		})
	}

	// Backups land next to the registry, so that directory must accept writes
	dir := filepath.Dir(agent.Repo.Path())
	if probe, err := os.CreateTemp(dir, ".veloctl-doctor-*"); err == nil {
		probe.Close()
		os.Remove(probe.Name())
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Backup directory writable (%s)", dir),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "error",
			Message: fmt.Sprintf("Backup directory not writable: %s", dir),
		})
	}

	return results
}

func checkVHosts(ctx context.Context, agent *Agent) []VHostCheck {
	checks := []VHostCheck{}

	reg, err := agent.Repo.Load(ctx)
	if err != nil {
		return checks
	}

	for _, rec := range reg.Records() {
		vc := VHostCheck{
			Domain: rec.Domain,
			Checks: []CheckResult{},
		}
		allOK := true

		// Check root directory exists
		if rec.Root == "" {
			vc.Checks = append(vc.Checks, CheckResult{
				Status:  "warning",
				Message: "no document root",
			})
			allOK = false
		} else if _, err := os.Stat(rec.Root); os.IsNotExist(err) {
			vc.Checks = append(vc.Checks, CheckResult{
				Status:  "warning",
				Message: "root directory missing",
			})
			allOK = false
		}

		// Check SSL files exist (if SSL configured)
		if rec.HasSSL() {
			if !com.IsFile(rec.SSLCertificate) {
				vc.Checks = append(vc.Checks, CheckResult{
					Status:  "error",
					Message: "SSL certificate missing",
				})
				allOK = false
			}
			if !com.IsFile(rec.SSLCertificateKey) {
				vc.Checks = append(vc.Checks, CheckResult{
					Status:  "error",
					Message: "SSL key missing",
				})
				allOK = false
			}
		}

		// Add success check if all OK
		if allOK {
			vc.Checks = append(vc.Checks, CheckResult{
				Status:  "success",
				Message: "config valid",
			})
		}

		checks = append(checks, vc)
	}

	return checks
}

func displayDoctorResults(report *DoctorReport) {
	// System
	output.Print("Checking system...")
	for _, check := range report.System {
		displayCheck(check)
	}
	output.Print("")

	// Configuration
	output.Print("Checking configuration...")
	for _, check := range report.Configuration {
		displayCheck(check)
	}
	output.Print("")

	// VHosts
	if len(report.VHosts) > 0 {
		output.Print("Checking vhosts...")
		for _, vhost := range report.VHosts {
			for _, check := range vhost.Checks {
				switch check.Status {
				case "success":
					output.Success("%s - %s", vhost.Domain, check.Message)
				case "warning":
					output.Warn("%s - %s", vhost.Domain, check.Message)
				case "error":
					output.Error("%s - %s", vhost.Domain, check.Message)
				}
			}
		}
	} else {
		output.Print("No vhosts in the registry")
	}
}

func displayCheck(check CheckResult) {
	switch check.Status {
	case "success":
		output.Success("%s", check.Message)
	case "warning":
		output.Warn("%s", check.Message)
	case "error":
		output.Error("%s", check.Message)
	}
}
