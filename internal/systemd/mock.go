package systemd

import "context"

// MockManager is a stateful test double for the Manager interface. Start,
// Stop, Enable and Disable update the unit-state maps so a test can drive a
// whole switchover sequence and then assert the final state.
type MockManager struct {
	// ActiveUnits and EnabledUnits hold the simulated unit states
	ActiveUnits  map[string]bool
	EnabledUnits map[string]bool

	// Errors injects failures keyed by "verb unit", e.g. "start veloserve"
	Errors map[string]error

	// Calls records every invocation as "verb unit" in order
	Calls []string
}

// NewMockManager creates a new MockManager with empty unit states
func NewMockManager() *MockManager {
	return &MockManager{
		ActiveUnits:  make(map[string]bool),
		EnabledUnits: make(map[string]bool),
		Errors:       make(map[string]error),
	}
}

func (m *MockManager) record(verb, unit string) error {
	key := verb + " " + unit
	m.Calls = append(m.Calls, key)
	if err, ok := m.Errors[key]; ok {
		return err
	}
	return nil
}

// Start marks the unit active
func (m *MockManager) Start(ctx context.Context, unit string) error {
	if err := m.record("start", unit); err != nil {
		return err
	}
	m.ActiveUnits[unit] = true
	return nil
}

// Stop marks the unit inactive
func (m *MockManager) Stop(ctx context.Context, unit string) error {
	if err := m.record("stop", unit); err != nil {
		return err
	}
	m.ActiveUnits[unit] = false
	return nil
}

// Restart marks the unit active
func (m *MockManager) Restart(ctx context.Context, unit string) error {
	if err := m.record("restart", unit); err != nil {
		return err
	}
	m.ActiveUnits[unit] = true
	return nil
}

// Reload records the call without changing state
func (m *MockManager) Reload(ctx context.Context, unit string) error {
	return m.record("reload", unit)
}

// Enable marks the unit enabled at boot
func (m *MockManager) Enable(ctx context.Context, unit string) error {
	if err := m.record("enable", unit); err != nil {
		return err
	}
	m.EnabledUnits[unit] = true
	return nil
}

// Disable marks the unit disabled at boot
func (m *MockManager) Disable(ctx context.Context, unit string) error {
	if err := m.record("disable", unit); err != nil {
		return err
	}
	m.EnabledUnits[unit] = false
	return nil
}

// IsActive reports the simulated active state
func (m *MockManager) IsActive(ctx context.Context, unit string) (bool, error) {
	if err := m.record("is-active", unit); err != nil {
		return false, err
	}
	return m.ActiveUnits[unit], nil
}

// IsEnabled reports the simulated enabled state
func (m *MockManager) IsEnabled(ctx context.Context, unit string) (bool, error) {
	if err := m.record("is-enabled", unit); err != nil {
		return false, err
	}
	return m.EnabledUnits[unit], nil
}

// Reset clears the call log, keeping the unit states
func (m *MockManager) Reset() {
	m.Calls = nil
}
