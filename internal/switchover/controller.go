// Package switchover moves traffic ownership between VeloServe and Apache.
//
// Both engines want the same ports, so a switch is a fixed sequence of
// steps run under an exclusive file lock: stop monitoring the engine that
// is about to go away, swap the units, start monitoring the new one. A
// second switch attempt while the lock is held fails immediately instead
// of queueing.
//
// Every step runs under its own deadline. When a step fails the completed
// steps are rolled back in reverse and the controller verifies that the
// prior state actually came back; a recovery it cannot confirm is reported
// as UNKNOWN rather than guessed.
package switchover

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/veloserve/veloctl/internal/apache"
	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/monitor"
	"github.com/veloserve/veloctl/internal/ports"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/systemd"
)

const (
	defaultLockFile    = "/var/run/veloctl.switch.lock"
	defaultStepTimeout = 60 * time.Second
	defaultHTTPPort    = 80
	defaultMonitorUnit = "chkservd"

	portPollInterval = 500 * time.Millisecond
)

// VhostImporter supplies the import step of a switch to VeloServe.
type VhostImporter interface {
	Discover() ([]registry.Record, error)
	Merge(reg *registry.Registry, candidates []registry.Record) apache.ImportStats
}

// Options configures a Controller. Zero values fall back to the defaults
// above.
type Options struct {
	LockFile      string
	StepTimeout   time.Duration
	HTTPPort      uint32
	VeloServeUnit string
	ApacheUnit    string
	MonitorUnit   string

	// Progress, when set, is called before each step runs.
	Progress func(n, total int, name string)
}

// Result reports one switchover attempt.
type Result struct {
	OperationID string   `json:"operation_id"`
	Target      Service  `json:"target"`
	From        State    `json:"from"`
	State       State    `json:"state"`
	Steps       []string `json:"steps,omitempty"`
	NoOp        bool     `json:"no_op,omitempty"`
}

// step is one named unit of work in a switch sequence. rollback undoes a
// completed run and may be nil when there is nothing to undo.
type step struct {
	name     string
	run      func(ctx context.Context) error
	rollback func(ctx context.Context) error
}

// Controller performs switchovers and answers which engine is active.
type Controller struct {
	opts     Options
	units    map[Service]string
	repo     *registry.Repository
	importer VhostImporter
	systemd  systemd.Manager
	watchdog monitor.Watchdog
	ports    ports.Inspector
	log      logger.Logger
}

// NewController wires a Controller from its collaborators. importer may be
// nil when Apache discovery is unavailable; the import step then degrades
// to a warning.
func NewController(opts Options, repo *registry.Repository, importer VhostImporter, manager systemd.Manager, watchdog monitor.Watchdog, inspector ports.Inspector, log logger.Logger) *Controller {
	if opts.LockFile == "" {
		opts.LockFile = defaultLockFile
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	if opts.HTTPPort == 0 {
		opts.HTTPPort = defaultHTTPPort
	}
	if opts.VeloServeUnit == "" {
		opts.VeloServeUnit = "veloserve"
	}
	if opts.ApacheUnit == "" {
		opts.ApacheUnit = "httpd"
	}
	if opts.MonitorUnit == "" {
		opts.MonitorUnit = defaultMonitorUnit
	}
	if log == nil {
		log = logger.NilLogger{}
	}

	return &Controller{
		opts: opts,
		units: map[Service]string{
			ServiceVeloServe: opts.VeloServeUnit,
			ServiceApache:    opts.ApacheUnit,
		},
		repo:     repo,
		importer: importer,
		systemd:  manager,
		watchdog: watchdog,
		ports:    inspector,
		log:      log,
	}
}

// SwitchTo makes target the serving engine. Switching to the engine that
// is already active is a no-op success.
func (c *Controller) SwitchTo(ctx context.Context, target Service) (*Result, error) {
	opID := uuid.NewString()

	transition := flock.New(c.opts.LockFile)
	locked, err := transition.TryLock()
	if err != nil {
		return nil, errors.IO(fmt.Sprintf("failed to acquire switch lock %s", c.opts.LockFile), err)
	}
	if !locked {
		return nil, errors.SwitchConflict()
	}
	defer func() {
		if err := transition.Unlock(); err != nil {
			c.log.Warning("switch %s: failed to release lock: %v", opID, err)
		}
	}()

	from := c.observeState(ctx)
	if from == target.State() {
		c.log.Info("switch %s: %s is already active", opID, target)
		return &Result{OperationID: opID, Target: target, From: from, State: from, NoOp: true}, nil
	}
	c.log.Info("switch %s: %s -> %s", opID, from, target.State())

	steps := c.stepsTo(target)
	completed := make([]step, 0, len(steps))
	for i, st := range steps {
		c.log.Info("switch %s: [%d/%d] %s", opID, i+1, len(steps), st.name)
		if c.opts.Progress != nil {
			c.opts.Progress(i+1, len(steps), st.name)
		}
		if err := c.runStep(ctx, st); err != nil {
			c.log.Error("switch %s: step %q failed: %v", opID, st.name, err)
			state := c.rollback(ctx, opID, completed, from)
			result := &Result{OperationID: opID, Target: target, From: from, State: state, Steps: stepNames(completed)}
			return result, errors.ServiceControl(st.name, err)
		}
		completed = append(completed, st)
	}

	c.log.Info("switch %s: %s is now active", opID, target)
	return &Result{OperationID: opID, Target: target, From: from, State: target.State(), Steps: stepNames(steps)}, nil
}

// Plan returns the step names SwitchTo would run for target, in order.
// It inspects nothing and takes no lock.
func (c *Controller) Plan(target Service) []string {
	return stepNames(c.stepsTo(target))
}

// ActiveService reports the current state. A held switch lock means a
// transition is in flight; otherwise the owner of the HTTP port decides,
// and with no listener at all the systemd unit states break the tie.
func (c *Controller) ActiveService(ctx context.Context) State {
	probe := flock.New(c.opts.LockFile)
	locked, err := probe.TryLock()
	if err == nil && !locked {
		return StateTransitioning
	}
	if locked {
		if err := probe.Unlock(); err != nil {
			c.log.Warning("switch: failed to release probe lock: %v", err)
		}
	}
	return c.observeState(ctx)
}

// observeState inspects ports and units without touching the switch lock.
func (c *Controller) observeState(ctx context.Context) State {
	owner, ok, err := c.ports.OwnerOfPort(ctx, c.opts.HTTPPort)
	if err != nil {
		c.log.Debug("switch: port %d probe failed: %v", c.opts.HTTPPort, err)
	}
	if err == nil && ok {
		switch serviceOfProcess(owner.Name) {
		case ServiceVeloServe:
			return StateVeloServeActive
		case ServiceApache:
			return StateApacheActive
		default:
			c.log.Warning("switch: port %d is owned by unexpected process %q (pid %d)", c.opts.HTTPPort, owner.Name, owner.Pid)
			return StateUnknown
		}
	}

	// Nothing is listening. The unit states are a weaker signal but can
	// still name a single active engine.
	veloActive, veloErr := c.systemd.IsActive(ctx, c.units[ServiceVeloServe])
	apacheActive, apacheErr := c.systemd.IsActive(ctx, c.units[ServiceApache])
	if veloErr != nil || apacheErr != nil {
		return StateUnknown
	}
	switch {
	case veloActive && !apacheActive:
		return StateVeloServeActive
	case apacheActive && !veloActive:
		return StateApacheActive
	default:
		return StateUnknown
	}
}

func (c *Controller) runStep(ctx context.Context, st step) error {
	stepCtx, cancel := context.WithTimeout(ctx, c.opts.StepTimeout)
	defer cancel()
	return st.run(stepCtx)
}

// rollback undoes completed steps in reverse and verifies that the prior
// state came back. It runs detached from the caller's context so that the
// cancellation that failed the switch cannot also abort the recovery.
func (c *Controller) rollback(ctx context.Context, opID string, completed []step, prior State) State {
	base := context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		st := completed[i]
		if st.rollback == nil {
			continue
		}
		c.log.Info("switch %s: rolling back %q", opID, st.name)
		rbCtx, cancel := context.WithTimeout(base, c.opts.StepTimeout)
		if err := st.rollback(rbCtx); err != nil {
			c.log.Warning("switch %s: rollback of %q failed: %v", opID, st.name, err)
		}
		cancel()
	}

	if prior == StateUnknown {
		return StateUnknown
	}
	observed := c.observeState(base)
	if observed == prior {
		c.log.Info("switch %s: rolled back to %s", opID, prior)
		return prior
	}
	c.log.Warning("switch %s: rollback left state %s, wanted %s", opID, observed, prior)
	return StateUnknown
}

// stepsTo builds the switch sequence for target. Switching to Apache runs
// the same sequence without the import step.
func (c *Controller) stepsTo(target Service) []step {
	competitor := target.Other()
	targetUnit := c.units[target]
	competitorUnit := c.units[competitor]

	var steps []step
	if target == ServiceVeloServe {
		steps = append(steps, step{
			name: "import vhosts",
			run:  c.importVhosts,
		})
	}

	// Rollbacks restore only what the step actually changed, so a switch
	// attempted from a half-broken state does not invent new state.
	var competitorWasMonitored, competitorWasActive bool
	steps = append(steps,
		step{
			name: "disable competitor monitoring",
			run: func(ctx context.Context) error {
				competitorWasMonitored, _ = c.watchdog.IsMonitored(competitorUnit)
				return c.watchdog.Disable(competitorUnit)
			},
			rollback: func(ctx context.Context) error {
				if !competitorWasMonitored {
					return nil
				}
				return c.watchdog.Enable(competitorUnit)
			},
		},
		step{
			name: "stop competitor",
			run: func(ctx context.Context) error {
				competitorWasActive, _ = c.systemd.IsActive(ctx, competitorUnit)
				if err := c.systemd.Stop(ctx, competitorUnit); err != nil {
					return err
				}
				return c.systemd.Disable(ctx, competitorUnit)
			},
			rollback: func(ctx context.Context) error {
				if !competitorWasActive {
					return nil
				}
				if err := c.systemd.Enable(ctx, competitorUnit); err != nil {
					return err
				}
				return c.systemd.Start(ctx, competitorUnit)
			},
		},
		step{
			name: "start target",
			run: func(ctx context.Context) error {
				if err := c.systemd.Enable(ctx, targetUnit); err != nil {
					return err
				}
				if err := c.systemd.Start(ctx, targetUnit); err != nil {
					return err
				}
				return c.waitForPort(ctx, target)
			},
			rollback: func(ctx context.Context) error {
				if err := c.systemd.Stop(ctx, targetUnit); err != nil {
					return err
				}
				return c.systemd.Disable(ctx, targetUnit)
			},
		},
		step{
			name: "enable target monitoring",
			run: func(ctx context.Context) error {
				return c.watchdog.Enable(targetUnit)
			},
			rollback: func(ctx context.Context) error {
				return c.watchdog.Disable(targetUnit)
			},
		},
		step{
			name: "restart monitor supervisor",
			run: func(ctx context.Context) error {
				return c.systemd.Restart(ctx, c.opts.MonitorUnit)
			},
		},
	)

	return steps
}

// importVhosts pulls the Apache registry into ours before Apache goes
// away, so no site is lost in the switch.
func (c *Controller) importVhosts(ctx context.Context) error {
	if c.importer == nil {
		c.log.Warning("switch: no vhost importer configured, skipping import")
		return nil
	}

	candidates, err := c.importer.Discover()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		c.log.Info("switch: no apache vhosts to import")
		return nil
	}

	var stats apache.ImportStats
	err = c.repo.Update(ctx, func(reg *registry.Registry) error {
		stats = c.importer.Merge(reg, candidates)
		if stats.Total() == 0 {
			return registry.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.log.Info("switch: imported %d vhosts, %d gained ssl", stats.Imported, stats.Updated)
	return nil
}

// waitForPort polls until target owns the HTTP port or ctx expires. The
// unit reporting active is not enough; serving traffic means holding the
// port.
func (c *Controller) waitForPort(ctx context.Context, target Service) error {
	ticker := time.NewTicker(portPollInterval)
	defer ticker.Stop()

	for {
		owner, ok, err := c.ports.OwnerOfPort(ctx, c.opts.HTTPPort)
		if err != nil {
			c.log.Debug("switch: port %d probe failed: %v", c.opts.HTTPPort, err)
		}
		if err == nil && ok && serviceOfProcess(owner.Name) == target {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s did not take port %d: %w", target, c.opts.HTTPPort, ctx.Err())
		case <-ticker.C:
		}
	}
}

func stepNames(steps []step) []string {
	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = st.name
	}
	return names
}
