package engine

import "context"

// MockEngine is a test double for the Engine interface
type MockEngine struct {
	name string
	unit string

	// Function mocks - set these to customize behavior
	ReloadFunc  func(ctx context.Context) error
	VersionFunc func(ctx context.Context) (string, error)

	// Call tracking - check these to verify interactions
	ReloadCalls  int
	VersionCalls int
}

// NewMockEngine creates a new MockEngine with default no-op implementations
func NewMockEngine(name, unit string) *MockEngine {
	return &MockEngine{
		name: name,
		unit: unit,
	}
}

// Name returns the engine name
func (m *MockEngine) Name() string {
	return m.name
}

// Unit returns the configured unit name
func (m *MockEngine) Unit() string {
	return m.unit
}

// Reload records the call and invokes the mock function if set
func (m *MockEngine) Reload(ctx context.Context) error {
	m.ReloadCalls++
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

// Version records the call and invokes the mock function if set
func (m *MockEngine) Version(ctx context.Context) (string, error) {
	m.VersionCalls++
	if m.VersionFunc != nil {
		return m.VersionFunc(ctx)
	}
	return "0.0.0", nil
}

// Reset clears all call tracking
func (m *MockEngine) Reset() {
	m.ReloadCalls = 0
	m.VersionCalls = 0
}
