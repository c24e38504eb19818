// Package ports resolves which process owns a listening TCP port. The
// switchover controller uses it to decide who currently serves HTTP: a
// listener named veloserve and a listener named httpd mean very different
// agent states even when both units report active.
package ports

import (
	"context"
	"fmt"

	gnet "github.com/shirou/gopsutil/net"
	"github.com/shirou/gopsutil/process"
)

// Owner identifies the process behind a listening socket
type Owner struct {
	Pid  int32
	Name string
}

// Inspector looks up listening-port ownership
type Inspector interface {
	// OwnerOfPort returns the process listening on the given TCP port.
	// ok is false when nothing listens there.
	OwnerOfPort(ctx context.Context, port uint32) (owner Owner, ok bool, err error)
}

// SystemInspector implements Inspector over the kernel connection tables
type SystemInspector struct{}

// NewInspector creates a new SystemInspector
func NewInspector() *SystemInspector {
	return &SystemInspector{}
}

// OwnerOfPort scans TCP listeners for the given port and resolves the
// owning process name
func (i *SystemInspector) OwnerOfPort(ctx context.Context, port uint32) (Owner, bool, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return Owner{}, false, fmt.Errorf("failed to list tcp connections: %w", err)
	}

	for _, conn := range conns {
		if conn.Status != "LISTEN" || conn.Laddr.Port != port {
			continue
		}
		if conn.Pid == 0 {
			// Listener visible but owner not readable, usually a
			// privilege problem
			continue
		}

		proc, err := process.NewProcessWithContext(ctx, conn.Pid)
		if err != nil {
			return Owner{}, false, fmt.Errorf("failed to inspect pid %d: %w", conn.Pid, err)
		}
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			return Owner{}, false, fmt.Errorf("failed to resolve name of pid %d: %w", conn.Pid, err)
		}
		return Owner{Pid: conn.Pid, Name: name}, true, nil
	}

	return Owner{}, false, nil
}
