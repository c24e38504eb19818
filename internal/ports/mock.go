package ports

import "context"

// MockInspector is a test double for the Inspector interface
type MockInspector struct {
	// Owners maps ports to their simulated owners
	Owners map[uint32]Owner

	// Err is returned from every lookup when set
	Err error

	// Calls records the queried ports in order
	Calls []uint32
}

// NewMockInspector creates a new MockInspector with no listeners
func NewMockInspector() *MockInspector {
	return &MockInspector{Owners: make(map[uint32]Owner)}
}

// OwnerOfPort returns the configured owner for the port
func (m *MockInspector) OwnerOfPort(ctx context.Context, port uint32) (Owner, bool, error) {
	m.Calls = append(m.Calls, port)
	if m.Err != nil {
		return Owner{}, false, m.Err
	}
	owner, ok := m.Owners[port]
	return owner, ok, nil
}

// Reset clears recorded calls
func (m *MockInspector) Reset() {
	m.Calls = nil
}
