package engine

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/process"

	"github.com/veloserve/veloctl/internal/executor"
)

// veloServeVersionPattern matches "veloserve 1.4.2" and "VeloServe/1.4.2 (linux)"
var veloServeVersionPattern = regexp.MustCompile(`(?i)veloserve[ /]v?(\d+\.\d+\.\d+)`)

// VeloServeEngine implements the Engine interface for VeloServe
type VeloServeEngine struct {
	unit    string
	binPath string
	pidFile string
	exec    executor.CommandExecutor
}

// NewVeloServe creates a new VeloServe engine with default paths
func NewVeloServe() *VeloServeEngine {
	return NewVeloServeWithExecutor(
		"veloserve",
		"/usr/bin/veloserve",
		"/var/run/veloserve.pid",
		executor.NewSystemExecutor(),
	)
}

// NewVeloServeWithExecutor creates a new VeloServe engine with custom paths
// and executor (for testing)
func NewVeloServeWithExecutor(unit, binPath, pidFile string, exec executor.CommandExecutor) *VeloServeEngine {
	return &VeloServeEngine{
		unit:    unit,
		binPath: binPath,
		pidFile: pidFile,
		exec:    exec,
	}
}

// Name returns the engine name
func (e *VeloServeEngine) Name() string {
	return "veloserve"
}

// Unit returns the systemd unit name
func (e *VeloServeEngine) Unit() string {
	return e.unit
}

// Reload reloads VeloServe to apply registry changes
func (e *VeloServeEngine) Reload(ctx context.Context) error {
	output, err := e.exec.ExecuteContext(ctx, "systemctl", "reload", e.unit)
	if err != nil {
		// Fall back to a direct SIGHUP when the unit is not under
		// systemd control
		if sigErr := e.signalReload(); sigErr != nil {
			return fmt.Errorf("failed to reload veloserve: %s: %v", strings.TrimSpace(string(output)), sigErr)
		}
	}
	return nil
}

// Version reports the installed VeloServe version
func (e *VeloServeEngine) Version(ctx context.Context) (string, error) {
	output, err := e.exec.ExecuteContext(ctx, e.binPath, "--version")
	if err != nil {
		return "", fmt.Errorf("failed to run %s --version: %w", e.binPath, err)
	}
	if matches := veloServeVersionPattern.FindStringSubmatch(string(output)); len(matches) >= 2 {
		return matches[1], nil
	}
	return "unknown", nil
}

// signalReload sends SIGHUP to the pid recorded in the pid file
func (e *VeloServeEngine) signalReload() error {
	data, err := os.ReadFile(e.pidFile)
	if err != nil {
		return fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("pid file %s does not contain a pid: %w", e.pidFile, err)
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("process %d is not running: %w", pid, err)
	}

	if err := proc.SendSignal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	return nil
}
