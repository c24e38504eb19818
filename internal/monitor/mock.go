package monitor

// MockWatchdog is a stateful test double for the Watchdog interface
type MockWatchdog struct {
	// Monitored holds the simulated per-service flags
	Monitored map[string]bool

	// Errors injects failures keyed by "verb service", e.g. "enable veloserve"
	Errors map[string]error

	// Calls records every invocation as "verb service" in order
	Calls []string
}

// NewMockWatchdog creates a new MockWatchdog with no monitored services
func NewMockWatchdog() *MockWatchdog {
	return &MockWatchdog{
		Monitored: make(map[string]bool),
		Errors:    make(map[string]error),
	}
}

func (m *MockWatchdog) record(verb, service string) error {
	key := verb + " " + service
	m.Calls = append(m.Calls, key)
	if err, ok := m.Errors[key]; ok {
		return err
	}
	return nil
}

// Enable marks the service monitored
func (m *MockWatchdog) Enable(service string) error {
	if err := m.record("enable", service); err != nil {
		return err
	}
	m.Monitored[service] = true
	return nil
}

// Disable marks the service unmonitored
func (m *MockWatchdog) Disable(service string) error {
	if err := m.record("disable", service); err != nil {
		return err
	}
	m.Monitored[service] = false
	return nil
}

// IsMonitored reports the simulated flag
func (m *MockWatchdog) IsMonitored(service string) (bool, error) {
	if err := m.record("is-monitored", service); err != nil {
		return false, err
	}
	return m.Monitored[service], nil
}

// Reset clears the call log, keeping the flags
func (m *MockWatchdog) Reset() {
	m.Calls = nil
}
