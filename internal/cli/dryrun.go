package cli

import (
	"github.com/veloserve/veloctl/internal/output"
)

// DryRunOperation describes one action a command would take
type DryRunOperation struct {
	Action  string `json:"action"`
	Target  string `json:"target"`
	Details string `json:"details,omitempty"`
}

// DryRunResult aggregates the planned operations of one command
type DryRunResult struct {
	Domain        string            `json:"domain,omitempty"`
	Target        string            `json:"target,omitempty"`
	Operations    []DryRunOperation `json:"operations"`
	ConfigPreview string            `json:"config_preview,omitempty"`
}

// outputDryRun renders a dry-run plan as JSON or a numbered list
func outputDryRun(result *DryRunResult) error {
	if jsonOutput {
		return output.JSON(map[string]interface{}{
			"dry_run": true,
			"plan":    result,
		})
	}

	output.Warn("Dry-run mode, no changes will be made")
	for i, op := range result.Operations {
		output.Print("%d. %s %s", i+1, op.Action, op.Target)
		if op.Details != "" {
			output.Print("   %s", op.Details)
		}
	}
	if result.ConfigPreview != "" {
		output.Print("")
		output.Print("Registry block preview:")
		output.Print("%s", result.ConfigPreview)
	}
	return nil
}
