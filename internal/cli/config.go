package cli

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/config"
	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage agent configuration",
	Long:  `Read and write veloctl configuration options.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration options",
	Long: `List the effective configuration, defaults and file values merged.

Examples:
  veloctl config list
  veloctl config list --json`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <option>",
	Short: "Print one configuration option",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <option> <value>",
	Short: "Persist one configuration option",
	Long: `Write an option to the config file, creating the file when needed.
The running agent picks the change up through its file watch.

Examples:
  veloctl config set backup_keep 5
  veloctl config set apache_root /etc/httpd`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	options := cfg.ToMap()

	if jsonOutput {
		return output.JSON(options)
	}

	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, options[name]})
	}
	output.Table([]string{"OPTION", "VALUE"}, rows)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !lo.Contains(config.KnownOptions(), name) {
		return errors.Validation(fmt.Sprintf("unknown option %q, see veloctl config list", name))
	}

	value := cfg.ToMap()[name]
	if jsonOutput {
		return output.JSON(map[string]string{name: value})
	}
	output.Print("%s", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !lo.Contains(config.KnownOptions(), name) {
		return errors.Validation(fmt.Sprintf("unknown option %q, see veloctl config list", name))
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	if err := config.CreateConfigFileIfNotExists(cfg); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := cfg.SetParam(name, value); err != nil {
		return fmt.Errorf("failed to save option: %w", err)
	}

	return outputResult(
		map[string]interface{}{
			"success": true,
			"option":  name,
			"value":   value,
		},
		"Option %s set to %s", name, value,
	)
}
