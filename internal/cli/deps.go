package cli

import (
	"fmt"
	"os"

	"github.com/veloserve/veloctl/internal/apache"
	"github.com/veloserve/veloctl/internal/config"
	"github.com/veloserve/veloctl/internal/engine"
	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/executor"
	"github.com/veloserve/veloctl/internal/hooks"
	"github.com/veloserve/veloctl/internal/input"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/monitor"
	"github.com/veloserve/veloctl/internal/output"
	"github.com/veloserve/veloctl/internal/platform"
	"github.com/veloserve/veloctl/internal/ports"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/sslbind"
	"github.com/veloserve/veloctl/internal/status"
	"github.com/veloserve/veloctl/internal/switchover"
	"github.com/veloserve/veloctl/internal/systemd"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader ConfigLoader
	AgentBuilder AgentBuilder
	RootChecker  RootChecker
	StdinReader  input.Reader
}

// ConfigLoader handles configuration loading
type ConfigLoader interface {
	Load() (*config.Config, error)
}

// AgentBuilder wires the collaborators the commands operate on
type AgentBuilder interface {
	Build(cfg *config.Config) (*Agent, error)
}

// RootChecker checks root privileges
type RootChecker interface {
	RequireRoot() error
}

// Agent bundles the wired collaborators behind the CLI commands. Importer
// is nil when no local Apache configuration was detected.
type Agent struct {
	Repo       *registry.Repository
	VeloServe  engine.Engine
	Apache     engine.Engine
	Systemd    systemd.Manager
	Watchdog   monitor.Watchdog
	Controller *switchover.Controller
	Status     *status.Provider
	SSL        *sslbind.Synchronizer
	Dispatcher *hooks.Dispatcher
	Importer   switchover.VhostImporter
	Log        logger.Logger
}

// Package-level dependencies (can be overridden for testing)
var deps = &Dependencies{
	ConfigLoader: &realConfigLoader{},
	AgentBuilder: &realAgentBuilder{},
	RootChecker:  &realRootChecker{},
	StdinReader:  input.NewStdinReader(),
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

// Real implementations that delegate to existing functions

type realConfigLoader struct{}

func (r *realConfigLoader) Load() (*config.Config, error) {
	return config.GetConfig()
}

type realAgentBuilder struct{}

func (r *realAgentBuilder) Build(cfg *config.Config) (*Agent, error) {
	log, err := logger.New(cfg.LogFile, cfg.IsDevMode)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Set(log)

	exec := executor.NewSystemExecutor()
	repo := registry.NewRepository(cfg.RegistryPath, cfg.LockTimeout, cfg.BackupKeep, log)
	manager := systemd.NewManagerWithExecutor(exec)
	watchdog := monitor.NewChkservd(cfg.ChkservdDir, log)
	inspector := ports.NewInspector()

	veloserve := engine.NewVeloServeWithExecutor(cfg.VeloServeUnit, cfg.VeloServeBin, cfg.VeloServePidFile, exec)

	// Apache layout comes from the filesystem unless the config pins it.
	// A host without Apache still gets a working agent, minus the import.
	apacheUnit := cfg.ApacheUnit
	ctlPath := "apachectl"
	var importer switchover.VhostImporter
	if layout, derr := platform.DetectApache(); derr == nil {
		if apacheUnit == "" {
			apacheUnit = layout.Unit
		}
		ctlPath = layout.CtlPath
		importer = apache.NewImporter(layout.ServerRoot, log)
	} else {
		log.Debug("apache layout not detected: %v", derr)
	}
	if cfg.ApacheRoot != "" {
		importer = apache.NewImporter(cfg.ApacheRoot, log)
	}
	httpd := engine.NewApacheWithExecutor(apacheUnit, ctlPath, exec)

	controller := switchover.NewController(switchover.Options{
		LockFile:      cfg.SwitchLockFile,
		StepTimeout:   cfg.StepTimeout,
		HTTPPort:      uint32(cfg.HTTPPort),
		VeloServeUnit: cfg.VeloServeUnit,
		ApacheUnit:    apacheUnit,
		MonitorUnit:   cfg.MonitorUnit,
		Progress: func(n, total int, name string) {
			if !jsonOutput {
				output.Step(n, total, name)
			}
		},
	}, repo, importer, manager, watchdog, inspector, log)

	ssl := sslbind.NewSynchronizer(repo, veloserve, log)

	return &Agent{
		Repo:       repo,
		VeloServe:  veloserve,
		Apache:     httpd,
		Systemd:    manager,
		Watchdog:   watchdog,
		Controller: controller,
		Status:     status.NewProvider(controller, veloserve, httpd, manager, watchdog, repo, log),
		SSL:        ssl,
		Dispatcher: hooks.NewDispatcher(repo, ssl, veloserve, log),
		Importer:   importer,
		Log:        log,
	}, nil
}

type realRootChecker struct{}

func (r *realRootChecker) RequireRoot() error {
	if os.Geteuid() != 0 {
		return errors.ErrRootRequired
	}
	return nil
}
