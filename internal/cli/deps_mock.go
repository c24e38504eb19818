package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/veloserve/veloctl/internal/apache"
	"github.com/veloserve/veloctl/internal/config"
	"github.com/veloserve/veloctl/internal/engine"
	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/hooks"
	"github.com/veloserve/veloctl/internal/input"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/monitor"
	"github.com/veloserve/veloctl/internal/ports"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/sslbind"
	"github.com/veloserve/veloctl/internal/status"
	"github.com/veloserve/veloctl/internal/switchover"
	"github.com/veloserve/veloctl/internal/systemd"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg     *config.Config
	LoadErr error
	Calls   int
}

func (m *MockConfigLoader) Load() (*config.Config, error) {
	m.Calls++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = testConfig()
	}
	return m.Cfg, nil
}

// MockAgentBuilder is a test double for AgentBuilder
type MockAgentBuilder struct {
	Agent *Agent
	Err   error
	Calls int
}

func (m *MockAgentBuilder) Build(cfg *config.Config) (*Agent, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Agent == nil {
		return nil, errors.New("no mock agent configured")
	}
	return m.Agent, nil
}

// MockRootChecker is a test double for RootChecker
type MockRootChecker struct {
	IsRoot bool
	Calls  int
}

func (m *MockRootChecker) RequireRoot() error {
	m.Calls++
	if !m.IsRoot {
		return errors.ErrRootRequired
	}
	return nil
}

// MockImporter is a test double for the Apache vhost importer
type MockImporter struct {
	Candidates    []registry.Record
	Err           error
	DiscoverCalls int
}

func (m *MockImporter) Discover() ([]registry.Record, error) {
	m.DiscoverCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates, nil
}

func (m *MockImporter) Merge(reg *registry.Registry, candidates []registry.Record) apache.ImportStats {
	return apache.NewImporter("", logger.NilLogger{}).Merge(reg, candidates)
}

// unitPortInspector answers the HTTP port probe from the simulated unit
// states, so switch sequences resolve without real sockets.
type unitPortInspector struct {
	manager *systemd.MockManager
}

func (u *unitPortInspector) OwnerOfPort(ctx context.Context, port uint32) (ports.Owner, bool, error) {
	if u.manager.ActiveUnits["veloserve"] {
		return ports.Owner{Pid: 4100, Name: "veloserve"}, true, nil
	}
	if u.manager.ActiveUnits["httpd"] {
		return ports.Owner{Pid: 4200, Name: "httpd"}, true, nil
	}
	return ports.Owner{}, false, nil
}

// MockAgent is an Agent wired from test doubles. The registry repository
// and the synchronizers stay real and work against files under dir.
type MockAgent struct {
	Agent    *Agent
	Manager  *systemd.MockManager
	Watchdog *monitor.MockWatchdog
	Velo     *engine.MockEngine
	Httpd    *engine.MockEngine
	Importer *MockImporter

	RegistryPath string
	LockPath     string
}

// NewMockAgent builds an Agent from in-memory doubles rooted at dir,
// usually a t.TempDir().
func NewMockAgent(dir string) *MockAgent {
	manager := systemd.NewMockManager()
	watchdog := monitor.NewMockWatchdog()
	velo := engine.NewMockEngine("veloserve", "veloserve")
	httpd := engine.NewMockEngine("apache", "httpd")
	importer := &MockImporter{}

	registryPath := filepath.Join(dir, "veloserve.conf")
	lockPath := filepath.Join(dir, "veloctl.switch.lock")
	log := logger.NilLogger{}

	repo := registry.NewRepository(registryPath, time.Second, 0, log)

	controller := switchover.NewController(switchover.Options{
		LockFile:    lockPath,
		StepTimeout: 2 * time.Second,
	}, repo, importer, manager, watchdog, &unitPortInspector{manager: manager}, log)

	ssl := sslbind.NewSynchronizer(repo, velo, log)

	return &MockAgent{
		Agent: &Agent{
			Repo:       repo,
			VeloServe:  velo,
			Apache:     httpd,
			Systemd:    manager,
			Watchdog:   watchdog,
			Controller: controller,
			Status:     status.NewProvider(controller, velo, httpd, manager, watchdog, repo, log),
			SSL:        ssl,
			Dispatcher: hooks.NewDispatcher(repo, ssl, velo, log),
			Importer:   importer,
			Log:        log,
		},
		Manager:      manager,
		Watchdog:     watchdog,
		Velo:         velo,
		Httpd:        httpd,
		Importer:     importer,
		RegistryPath: registryPath,
		LockPath:     lockPath,
	}
}

// testConfig returns agent settings for CLI tests.
func testConfig() *config.Config {
	return &config.Config{
		RegistryPath:   "/etc/veloserve/veloserve.conf",
		BackupKeep:     3,
		LockTimeout:    time.Second,
		SwitchLockFile: "/var/run/veloctl.switch.lock",
		StepTimeout:    2 * time.Second,
		VeloServeUnit:  "veloserve",
		VeloServeBin:   "veloserve",
		ApacheUnit:     "httpd",
		ChkservdDir:    "/etc/chkserv.d",
		MonitorUnit:    "chkservd",
		HTTPPort:       80,
		Port:           60155,
		LogFile:        "/var/log/veloserve/veloctl.log",
		Version:        "test",
	}
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults
func NewMockDeps() *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader: &MockConfigLoader{},
			AgentBuilder: &MockAgentBuilder{},
			RootChecker:  &MockRootChecker{IsRoot: true},
			StdinReader:  input.NewStringReader("y\n"),
		},
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigError makes config loading fail
func (b *MockDependenciesBuilder) WithConfigError(err error) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{LoadErr: err}
	return b
}

// WithAgent routes agent wiring to the given agent
func (b *MockDependenciesBuilder) WithAgent(agent *Agent) *MockDependenciesBuilder {
	b.deps.AgentBuilder = &MockAgentBuilder{Agent: agent}
	return b
}

// WithAgentError makes agent wiring fail
func (b *MockDependenciesBuilder) WithAgentError(err error) *MockDependenciesBuilder {
	b.deps.AgentBuilder = &MockAgentBuilder{Err: err}
	return b
}

// WithRootAccess sets whether root access is available
func (b *MockDependenciesBuilder) WithRootAccess(isRoot bool) *MockDependenciesBuilder {
	b.deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// TestHelper wires mock dependencies for one CLI test and restores the
// originals on cleanup.
type TestHelper struct {
	OldDeps *Dependencies
	Agent   *MockAgent
	Config  *config.Config
}

// NewTestHelper installs a mock agent rooted at dir and returns the helper.
func NewTestHelper(t interface {
	Helper()
	Cleanup(func())
}, dir string) *TestHelper {
	t.Helper()

	agent := NewMockAgent(dir)
	cfg := testConfig()

	helper := &TestHelper{
		OldDeps: deps,
		Agent:   agent,
		Config:  cfg,
	}

	deps = NewMockDeps().
		WithConfig(cfg).
		WithAgent(agent.Agent).
		Build()

	t.Cleanup(func() {
		deps = helper.OldDeps
	})

	return helper
}

// SetRootAccess sets whether root access is available
func (h *TestHelper) SetRootAccess(isRoot bool) {
	deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
}

// SetStdinInput sets the stdin input
func (h *TestHelper) SetStdinInput(inputs ...string) {
	deps.StdinReader = input.NewStringReader(inputs...)
}

// SeedVHost writes a record straight into the mock agent's registry.
func (h *TestHelper) SeedVHost(rec registry.Record) error {
	_, err := h.Agent.Agent.Repo.AddOrUpdate(context.Background(), rec)
	return err
}
