// Package systemd wraps the systemctl verbs the agent needs for service
// lifecycle control. All calls are context-bound so a hung systemctl cannot
// stall a switchover step past its timeout.
package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/veloserve/veloctl/internal/executor"
)

// Manager controls systemd units
type Manager interface {
	// Start starts a unit
	Start(ctx context.Context, unit string) error

	// Stop stops a unit
	Stop(ctx context.Context, unit string) error

	// Restart restarts a unit
	Restart(ctx context.Context, unit string) error

	// Reload asks a unit to reload its configuration
	Reload(ctx context.Context, unit string) error

	// Enable enables a unit at boot
	Enable(ctx context.Context, unit string) error

	// Disable disables a unit at boot
	Disable(ctx context.Context, unit string) error

	// IsActive reports whether a unit is currently running
	IsActive(ctx context.Context, unit string) (bool, error)

	// IsEnabled reports whether a unit is enabled at boot
	IsEnabled(ctx context.Context, unit string) (bool, error)
}

// SystemdManager implements Manager using the systemctl binary
type SystemdManager struct {
	exec executor.CommandExecutor
}

// NewManager creates a new SystemdManager
func NewManager() *SystemdManager {
	return &SystemdManager{exec: executor.NewSystemExecutor()}
}

// NewManagerWithExecutor creates a new SystemdManager with a custom
// executor (for testing)
func NewManagerWithExecutor(exec executor.CommandExecutor) *SystemdManager {
	return &SystemdManager{exec: exec}
}

// Start starts a unit
func (s *SystemdManager) Start(ctx context.Context, unit string) error {
	return s.run(ctx, "start", unit)
}

// Stop stops a unit
func (s *SystemdManager) Stop(ctx context.Context, unit string) error {
	return s.run(ctx, "stop", unit)
}

// Restart restarts a unit
func (s *SystemdManager) Restart(ctx context.Context, unit string) error {
	return s.run(ctx, "restart", unit)
}

// Reload asks a unit to reload its configuration
func (s *SystemdManager) Reload(ctx context.Context, unit string) error {
	return s.run(ctx, "reload", unit)
}

// Enable enables a unit at boot
func (s *SystemdManager) Enable(ctx context.Context, unit string) error {
	return s.run(ctx, "enable", unit)
}

// Disable disables a unit at boot
func (s *SystemdManager) Disable(ctx context.Context, unit string) error {
	return s.run(ctx, "disable", unit)
}

// IsActive reports whether a unit is currently running. A non-zero exit
// with an "inactive" or "failed" answer is a normal negative result, not
// an error.
func (s *SystemdManager) IsActive(ctx context.Context, unit string) (bool, error) {
	state, err := s.query(ctx, "is-active", unit)
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

// IsEnabled reports whether a unit is enabled at boot. Only the exact
// "enabled" answer counts; states like "static" or "enabled-runtime" do not.
func (s *SystemdManager) IsEnabled(ctx context.Context, unit string) (bool, error) {
	state, err := s.query(ctx, "is-enabled", unit)
	if err != nil {
		return false, err
	}
	return state == "enabled", nil
}

func (s *SystemdManager) run(ctx context.Context, verb, unit string) error {
	output, err := s.exec.ExecuteContext(ctx, "systemctl", verb, unit)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %s", verb, unit, strings.TrimSpace(string(output)))
	}
	return nil
}

// query runs a systemctl predicate. systemctl exits non-zero for negative
// answers, so the error only matters when no answer was printed at all.
func (s *SystemdManager) query(ctx context.Context, verb, unit string) (string, error) {
	output, err := s.exec.ExecuteContext(ctx, "systemctl", verb, unit)
	state := strings.TrimSpace(string(output))
	if state == "" && err != nil {
		return "", fmt.Errorf("failed to run systemctl %s %s: %v", verb, unit, err)
	}
	return state, nil
}
