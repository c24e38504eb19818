package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/registry"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the registry file in an editor",
	Long: `Open the VeloServe registry in an editor and re-parse it afterwards.

Uses $EDITOR environment variable or defaults to vi. Blocks that fail to
parse after the edit are reported but kept; VeloServe skips them.

Examples:
  veloctl edit
  EDITOR=nano veloctl edit`,
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	_, agent, err := loadAgent()
	if err != nil {
		return err
	}

	// Require root for system operations
	if err := requireRoot(); err != nil {
		return err
	}

	path := agent.Repo.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("registry file not found: %s", path)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	// Get editor
	editor := getEditor()

	// Check if editor exists
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		return fmt.Errorf("editor not found: %s", editor)
	}

	output.Info("Opening %s with %s...", path, editor)

	// Create and run editor command
	editCmd := exec.Command(editorPath, path)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr

	if err := editCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to re-read registry: %w", err)
	}
	if bytes.Equal(before, after) {
		output.Info("No changes made")
		return nil
	}

	reg := registry.Parse(after, logger.Default())
	if n := reg.MalformedBlocks(); n > 0 {
		output.Warn("Registry now has %d malformed block(s), VeloServe will skip them", n)
	} else {
		output.Success("Registry parsed OK (%d vhosts)", len(reg.Records()))
	}

	reloadVeloServe(context.Background(), agent)
	return nil
}

func getEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	return "vi"
}
