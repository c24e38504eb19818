package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/veloserve/veloctl/internal/config"
	"github.com/veloserve/veloctl/internal/output"
)

// loadAgent loads the configuration and wires the agent behind it.
func loadAgent() (*config.Config, *Agent, error) {
	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	agent, err := deps.AgentBuilder.Build(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wire agent: %w", err)
	}

	return cfg, agent, nil
}

// requireRoot checks privileges through the injected checker
func requireRoot() error {
	return deps.RootChecker.RequireRoot()
}

// reloadVeloServe issues the post-mutation reload unless --no-reload is
// set. Reload failures are reported but do not fail the command; the
// registry change is already on disk.
func reloadVeloServe(ctx context.Context, agent *Agent) {
	if noReload {
		return
	}
	if err := agent.VeloServe.Reload(ctx); err != nil {
		output.Warn("Registry updated but veloserve reload failed: %v", err)
	}
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// validateDomain checks if domain is valid
func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if strings.Contains(domain, " ") {
		return fmt.Errorf("domain cannot contain spaces")
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("domain cannot start or end with hyphen")
	}
	return nil
}

// validateRoot checks if root path is valid
func validateRoot(root string) error {
	if root == "" {
		return nil // empty is allowed (will be validated elsewhere if required)
	}
	if !filepath.IsAbs(root) {
		return fmt.Errorf("root path must be absolute: %s", root)
	}
	return nil
}

// CommandResult represents a common result structure for CLI commands
type CommandResult struct {
	Success bool   `json:"success"`
	Domain  string `json:"domain"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
}

// newSuccessResult creates a success result
func newSuccessResult(domain, action string) CommandResult {
	return CommandResult{
		Success: true,
		Domain:  domain,
		Action:  action,
	}
}
