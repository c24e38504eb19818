// Package engine abstracts the two serving engines the agent manages,
// VeloServe and Apache. An Engine knows how to ask the running server to
// re-read its configuration and how to report its installed version; process
// lifecycle (start/stop/enable) stays with the systemd manager.
package engine

import "context"

// Engine is the interface both serving engines implement
type Engine interface {
	// Name returns the engine name (veloserve, apache)
	Name() string

	// Unit returns the systemd unit the engine runs under
	Unit() string

	// Reload asks the running engine to re-read its configuration
	// without dropping connections
	Reload(ctx context.Context) error

	// Version reports the installed engine version, or "unknown" when
	// the binary runs but prints nothing recognizable
	Version(ctx context.Context) (string, error)
}
