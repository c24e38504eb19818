package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all virtual hosts in the registry",
	Long: `List the virtual hosts VeloServe serves.

Examples:
  veloctl list
  veloctl ls
  veloctl list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type vhostListItem struct {
	Domain   string `json:"domain"`
	Owner    string `json:"owner,omitempty"`
	Root     string `json:"root,omitempty"`
	Platform string `json:"platform,omitempty"`
	SSL      bool   `json:"ssl"`
}

func runList(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	reg, err := agent.Repo.Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	records := reg.Records()
	items := make([]vhostListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, vhostListItem{
			Domain:   rec.Domain,
			Owner:    rec.Owner(),
			Root:     rec.Root,
			Platform: rec.Platform,
			SSL:      rec.HasSSL(),
		})
	}

	// Sort by domain
	sort.Slice(items, func(i, j int) bool {
		return items[i].Domain < items[j].Domain
	})

	if n := reg.MalformedBlocks(); n > 0 && !jsonOutput {
		output.Warn("Registry has %d malformed block(s), not shown", n)
	}

	if len(items) == 0 {
		if jsonOutput {
			return output.JSON([]vhostListItem{})
		}
		output.Info("No virtual hosts in the registry")
		return nil
	}

	if jsonOutput {
		return output.JSON(items)
	}

	// Build table
	headers := []string{"DOMAIN", "OWNER", "ROOT", "PLATFORM", "SSL"}
	rows := make([][]string, 0, len(items))

	for _, item := range items {
		ssl := "no"
		if item.SSL {
			ssl = "yes"
		}

		platform := item.Platform
		if platform == "" {
			platform = "-"
		}

		rows = append(rows, []string{
			item.Domain,
			item.Owner,
			item.Root,
			platform,
			ssl,
		})
	}

	output.Table(headers, rows)
	return nil
}
