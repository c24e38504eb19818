package cli

import (
	"context"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent and service status",
	Long: `Show which engine owns web traffic, the state of both engines and
their watchdog entries, host facts and a registry summary.

Examples:
  veloctl status
  veloctl status --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	snap := agent.Status.Snapshot(context.Background())

	if jsonOutput {
		return output.JSON(snap)
	}

	displayStatus(snap)
	return nil
}

func displayStatus(snap *status.Snapshot) {
	output.Print("")
	output.Print("Traffic:    %s", snap.State)
	if snap.Host.Hostname != "" {
		output.Print("Host:       %s", snap.Host.Hostname)
	}
	if snap.Host.Platform != "" {
		output.Print("Platform:   %s (kernel %s)", snap.Host.Platform, snap.Host.KernelVersion)
	}
	output.Print("")

	headers := []string{"SERVICE", "UNIT", "ACTIVE", "ENABLED", "MONITORED", "PID", "UPTIME", "VERSION"}
	rows := make([][]string, 0, len(snap.Services))
	for _, svc := range snap.Services {
		pid := "-"
		if svc.Pid > 0 {
			pid = strconv.Itoa(int(svc.Pid))
		}
		uptime := svc.Uptime
		if uptime == "" {
			uptime = "-"
		}
		version := svc.Version
		if version == "" {
			version = "-"
		}
		rows = append(rows, []string{
			svc.Name,
			svc.Unit,
			yesNo(svc.Active),
			yesNo(svc.Enabled),
			yesNo(svc.Monitored),
			pid,
			uptime,
			version,
		})
	}
	output.Table(headers, rows)

	output.Print("")
	output.Print("VHosts:     %d total, %d with SSL", snap.Totals.Vhosts, snap.Totals.SSL)
	if len(snap.Totals.Platforms) > 0 {
		platforms := make([]string, 0, len(snap.Totals.Platforms))
		for name := range snap.Totals.Platforms {
			platforms = append(platforms, name)
		}
		sort.Strings(platforms)
		for _, name := range platforms {
			output.Print("  %s: %d", name, snap.Totals.Platforms[name])
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
