package engine

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/veloserve/veloctl/internal/executor"
)

// failSystemctl returns a mock executor whose systemctl invocations fail and
// whose other commands succeed
func failSystemctl() *executor.MockExecutor {
	return &executor.MockExecutor{
		ExecuteFunc: func(name string, args ...string) ([]byte, error) {
			if name == "systemctl" {
				return []byte("Failed to reload: Unit not loaded."), errors.New("exit status 1")
			}
			return []byte(""), nil
		},
	}
}

func TestVeloServeEngine_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("systemctl reload succeeds", func(t *testing.T) {
		exec := &executor.MockExecutor{}
		eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", "/var/run/veloserve.pid", exec)

		if err := eng.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		if len(exec.Calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(exec.Calls))
		}
		call := exec.Calls[0]
		if call.Name != "systemctl" || call.Args[0] != "reload" || call.Args[1] != "veloserve" {
			t.Errorf("unexpected command: %s %v", call.Name, call.Args)
		}
	})

	t.Run("falls back to pid file signal", func(t *testing.T) {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		pidFile := filepath.Join(t.TempDir(), "veloserve.pid")
		if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
			t.Fatalf("failed to write pid file: %v", err)
		}

		eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", pidFile, failSystemctl())

		if err := eng.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		select {
		case <-hup:
		case <-time.After(2 * time.Second):
			t.Fatal("expected SIGHUP, none received")
		}
	})

	t.Run("reports failure when no pid file exists", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "veloserve.pid")
		eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", pidFile, failSystemctl())

		if err := eng.Reload(ctx); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("reports failure for a stale pid", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "veloserve.pid")
		// Pid well beyond the default kernel pid_max
		if err := os.WriteFile(pidFile, []byte("99999999"), 0644); err != nil {
			t.Fatalf("failed to write pid file: %v", err)
		}

		eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", pidFile, failSystemctl())

		if err := eng.Reload(ctx); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestVeloServeEngine_Version(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"plain version line", "veloserve 1.4.2 (linux/amd64)\n", "1.4.2"},
		{"slash separated", "VeloServe/2.0.1 built 2026-05-11\n", "2.0.1"},
		{"unrecognized output", "some banner text\n", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &executor.MockExecutor{
				ExecuteFunc: func(name string, args ...string) ([]byte, error) {
					return []byte(tt.output), nil
				},
			}
			eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", "/var/run/veloserve.pid", exec)

			got, err := eng.Version(ctx)
			if err != nil {
				t.Fatalf("Version failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}

			call := exec.Calls[0]
			if call.Name != "/usr/bin/veloserve" || call.Args[0] != "--version" {
				t.Errorf("unexpected command: %s %v", call.Name, call.Args)
			}
		})
	}

	t.Run("binary missing", func(t *testing.T) {
		exec := &executor.MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				return nil, errors.New("no such file or directory")
			},
		}
		eng := NewVeloServeWithExecutor("veloserve", "/usr/bin/veloserve", "/var/run/veloserve.pid", exec)

		if _, err := eng.Version(ctx); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestApacheEngine_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("systemctl reload succeeds", func(t *testing.T) {
		exec := &executor.MockExecutor{}
		eng := NewApacheWithExecutor("httpd", "apachectl", exec)

		if err := eng.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		if len(exec.Calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(exec.Calls))
		}
		call := exec.Calls[0]
		if call.Name != "systemctl" || call.Args[1] != "httpd" {
			t.Errorf("unexpected command: %s %v", call.Name, call.Args)
		}
	})

	t.Run("falls back to apachectl graceful", func(t *testing.T) {
		exec := failSystemctl()
		eng := NewApacheWithExecutor("httpd", "apachectl", exec)

		if err := eng.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		if len(exec.Calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(exec.Calls))
		}
		fallback := exec.Calls[1]
		if fallback.Name != "apachectl" || fallback.Args[0] != "graceful" {
			t.Errorf("unexpected fallback command: %s %v", fallback.Name, fallback.Args)
		}
	})

	t.Run("reports failure when both paths fail", func(t *testing.T) {
		exec := &executor.MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				return []byte("no server running"), errors.New("exit status 1")
			},
		}
		eng := NewApacheWithExecutor("httpd", "apachectl", exec)

		if err := eng.Reload(ctx); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestApacheEngine_Version(t *testing.T) {
	ctx := context.Background()

	exec := &executor.MockExecutor{
		ExecuteFunc: func(name string, args ...string) ([]byte, error) {
			return []byte("Server version: Apache/2.4.62 (Unix)\nServer built:   Jun 10 2026\n"), nil
		},
	}
	eng := NewApacheWithExecutor("httpd", "apachectl", exec)

	got, err := eng.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if got != "2.4.62" {
		t.Errorf("expected 2.4.62, got %s", got)
	}
}

func TestMockEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("tracks calls", func(t *testing.T) {
		m := NewMockEngine("veloserve", "veloserve")

		if err := m.Reload(ctx); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
		if _, err := m.Version(ctx); err != nil {
			t.Fatalf("Version failed: %v", err)
		}

		if m.ReloadCalls != 1 || m.VersionCalls != 1 {
			t.Errorf("expected 1 call each, got reload=%d version=%d", m.ReloadCalls, m.VersionCalls)
		}
	})

	t.Run("custom functions", func(t *testing.T) {
		m := NewMockEngine("apache", "httpd")
		m.ReloadFunc = func(ctx context.Context) error {
			return errors.New("reload refused")
		}

		if err := m.Reload(ctx); err == nil {
			t.Fatal("expected error, got nil")
		}
		if m.Name() != "apache" || m.Unit() != "httpd" {
			t.Errorf("unexpected identity: %s/%s", m.Name(), m.Unit())
		}
	})

	t.Run("reset clears tracking", func(t *testing.T) {
		m := NewMockEngine("veloserve", "veloserve")
		_ = m.Reload(ctx)
		m.Reset()

		if m.ReloadCalls != 0 {
			t.Errorf("expected 0 calls after reset, got %d", m.ReloadCalls)
		}
	})
}
