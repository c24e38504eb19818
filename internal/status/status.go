// Package status assembles the agent's full health picture: which engine
// owns traffic, per-service unit and watchdog state, host facts and the
// registry contents with their on-disk certificate state.
//
// A snapshot never fails as a whole. Probes that cannot answer degrade to
// zero values and a log line, so one broken subsystem does not hide the
// rest of the report.
package status

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/process"
	"github.com/unknwon/com"

	"github.com/veloserve/veloctl/internal/engine"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/monitor"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/switchover"
	"github.com/veloserve/veloctl/internal/systemd"
)

// ServiceStatus describes one serving engine.
type ServiceStatus struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Active    bool   `json:"active"`
	Enabled   bool   `json:"enabled"`
	Monitored bool   `json:"monitored"`
	Pid       int32  `json:"pid,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	Version   string `json:"version,omitempty"`
}

// HostInfo carries the host facts shown in status output.
type HostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os,omitempty"`
	Platform      string `json:"platform,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`
	UptimeSeconds uint64 `json:"uptime_seconds,omitempty"`
}

// VhostStatus is a registry record with its runtime state attached.
type VhostStatus struct {
	Domain      string `json:"domain"`
	Owner       string `json:"owner,omitempty"`
	Root        string `json:"root"`
	Platform    string `json:"platform,omitempty"`
	SSL         bool   `json:"ssl"`
	CertMissing bool   `json:"cert_missing,omitempty"`
}

// Totals aggregates the registry for the status summary line.
type Totals struct {
	Vhosts    int            `json:"vhosts"`
	SSL       int            `json:"ssl"`
	Platforms map[string]int `json:"platforms,omitempty"`
}

// Snapshot is one complete status report.
type Snapshot struct {
	State    switchover.State `json:"state"`
	Host     HostInfo         `json:"host"`
	Services []ServiceStatus  `json:"services"`
	Vhosts   []VhostStatus    `json:"vhosts"`
	Totals   Totals           `json:"totals"`
}

// processNames lists the names an engine's worker shows up under.
var processNames = map[string][]string{
	"veloserve": {"veloserve"},
	"apache":    {"httpd", "apache2"},
}

// Provider gathers snapshots from the controller, the engines and the
// registry.
type Provider struct {
	ctrl      *switchover.Controller
	veloserve engine.Engine
	apache    engine.Engine
	systemd   systemd.Manager
	watchdog  monitor.Watchdog
	repo      *registry.Repository
	log       logger.Logger

	findProcess func(ctx context.Context, names []string) (pid int32, uptime time.Duration, ok bool)
}

// NewProvider creates a status Provider.
func NewProvider(ctrl *switchover.Controller, veloserve, apache engine.Engine, manager systemd.Manager, watchdog monitor.Watchdog, repo *registry.Repository, log logger.Logger) *Provider {
	if log == nil {
		log = logger.NilLogger{}
	}
	return &Provider{
		ctrl:        ctrl,
		veloserve:   veloserve,
		apache:      apache,
		systemd:     manager,
		watchdog:    watchdog,
		repo:        repo,
		log:         log,
		findProcess: findProcessByNames,
	}
}

// Snapshot gathers a complete status report. It always returns a snapshot;
// probes that fail leave their fields empty.
func (p *Provider) Snapshot(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		State: p.ctrl.ActiveService(ctx),
		Host:  p.hostInfo(ctx),
		Services: []ServiceStatus{
			p.serviceStatus(ctx, "veloserve", p.veloserve),
			p.serviceStatus(ctx, "apache", p.apache),
		},
	}
	snap.Vhosts, snap.Totals = p.vhostStatuses(ctx)
	return snap
}

func (p *Provider) hostInfo(ctx context.Context) HostInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		p.log.Warning("status: failed to read host info: %v", err)
		return HostInfo{}
	}
	return HostInfo{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform + " " + info.PlatformVersion,
		KernelVersion: info.KernelVersion,
		UptimeSeconds: info.Uptime,
	}
}

func (p *Provider) serviceStatus(ctx context.Context, name string, eng engine.Engine) ServiceStatus {
	st := ServiceStatus{Name: name, Unit: eng.Unit()}

	var err error
	if st.Active, err = p.systemd.IsActive(ctx, eng.Unit()); err != nil {
		p.log.Debug("status: is-active %s: %v", eng.Unit(), err)
	}
	if st.Enabled, err = p.systemd.IsEnabled(ctx, eng.Unit()); err != nil {
		p.log.Debug("status: is-enabled %s: %v", eng.Unit(), err)
	}
	if st.Monitored, err = p.watchdog.IsMonitored(eng.Unit()); err != nil {
		p.log.Debug("status: watchdog flag for %s: %v", eng.Unit(), err)
	}
	if st.Version, err = eng.Version(ctx); err != nil {
		p.log.Debug("status: %s version: %v", name, err)
		st.Version = ""
	}

	if pid, uptime, ok := p.findProcess(ctx, processNames[name]); ok {
		st.Pid = pid
		st.Uptime = uptime.Truncate(time.Second).String()
	}
	return st
}

// vhostStatuses loads the registry and attaches the runtime state each
// record has on this host. A registry that cannot be read yields an empty
// list, not a failed snapshot.
func (p *Provider) vhostStatuses(ctx context.Context) ([]VhostStatus, Totals) {
	reg, err := p.repo.Load(ctx)
	if err != nil {
		p.log.Warning("status: failed to read registry: %v", err)
		return nil, Totals{}
	}

	records := reg.Records()
	vhosts := make([]VhostStatus, 0, len(records))
	for _, rec := range records {
		vh := VhostStatus{
			Domain:   rec.Domain,
			Owner:    rec.Owner(),
			Root:     rec.Root,
			Platform: rec.Platform,
			SSL:      rec.HasSSL(),
		}
		if vh.SSL && (!com.IsFile(rec.SSLCertificate) || !com.IsFile(rec.SSLCertificateKey)) {
			vh.CertMissing = true
		}
		vhosts = append(vhosts, vh)
	}

	totals := Totals{
		Vhosts: len(vhosts),
		SSL: lo.CountBy(vhosts, func(v VhostStatus) bool {
			return v.SSL
		}),
		Platforms: lo.CountValuesBy(
			lo.Filter(records, func(r registry.Record, _ int) bool {
				return r.Platform != ""
			}),
			func(r registry.Record) string {
				return r.Platform
			},
		),
	}
	if len(totals.Platforms) == 0 {
		totals.Platforms = nil
	}
	return vhosts, totals
}

// findProcessByNames scans the process table for the first match on any of
// the given names and reports its pid and age.
func findProcessByNames(ctx context.Context, names []string) (int32, time.Duration, bool) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, 0, false
	}
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if !lo.Contains(names, name) {
			continue
		}
		created, err := proc.CreateTimeWithContext(ctx)
		if err != nil {
			return proc.Pid, 0, true
		}
		return proc.Pid, time.Since(time.UnixMilli(created)), true
	}
	return 0, 0, false
}
