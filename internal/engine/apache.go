package engine

import (
	"context"
	"fmt"
	"regexp"

	"github.com/veloserve/veloctl/internal/executor"
)

// apacheVersionPattern matches "Server version: Apache/2.4.62 (Unix)"
var apacheVersionPattern = regexp.MustCompile(`Apache/(\d+\.\d+\.\d+)`)

// ApacheEngine implements the Engine interface for Apache
type ApacheEngine struct {
	unit    string
	ctlPath string
	exec    executor.CommandExecutor
}

// NewApache creates a new Apache engine with cPanel-style defaults
func NewApache() *ApacheEngine {
	return NewApacheWithExecutor("httpd", "apachectl", executor.NewSystemExecutor())
}

// NewApacheWithExecutor creates a new Apache engine with a custom unit,
// apachectl path and executor (for testing)
func NewApacheWithExecutor(unit, ctlPath string, exec executor.CommandExecutor) *ApacheEngine {
	return &ApacheEngine{
		unit:    unit,
		ctlPath: ctlPath,
		exec:    exec,
	}
}

// Name returns the engine name
func (a *ApacheEngine) Name() string {
	return "apache"
}

// Unit returns the systemd unit name
func (a *ApacheEngine) Unit() string {
	return a.unit
}

// Reload reloads Apache to apply changes
func (a *ApacheEngine) Reload(ctx context.Context) error {
	output, err := a.exec.ExecuteContext(ctx, "systemctl", "reload", a.unit)
	if err != nil {
		// Try apachectl graceful as fallback
		output, err = a.exec.ExecuteContext(ctx, a.ctlPath, "graceful")
		if err != nil {
			return fmt.Errorf("failed to reload apache: %s", string(output))
		}
	}
	return nil
}

// Version reports the installed Apache version
func (a *ApacheEngine) Version(ctx context.Context) (string, error) {
	output, err := a.exec.ExecuteContext(ctx, a.ctlPath, "-v")
	if err != nil {
		return "", fmt.Errorf("failed to run %s -v: %w", a.ctlPath, err)
	}
	if matches := apacheVersionPattern.FindStringSubmatch(string(output)); len(matches) >= 2 {
		return matches[1], nil
	}
	return "unknown", nil
}
