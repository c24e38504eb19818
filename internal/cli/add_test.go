package cli

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/veloserve/veloctl/internal/registry"
)

func TestRunAdd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		setupFlags  func()
		setup       func(t *testing.T, h *TestHelper)
		wantErr     bool
		errContains string
		validate    func(t *testing.T, h *TestHelper)
	}{
		{
			name: "add new vhost",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
			},
			validate: func(t *testing.T, h *TestHelper) {
				reg, err := h.Agent.Agent.Repo.Load(context.Background())
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				rec, ok := reg.Get("example.com")
				if !ok {
					t.Fatal("expected example.com in the registry")
				}
				if rec.Root != "/home/alice/public_html" {
					t.Errorf("Root = %q, want /home/alice/public_html", rec.Root)
				}
				if h.Agent.Velo.ReloadCalls != 1 {
					t.Errorf("ReloadCalls = %d, want 1", h.Agent.Velo.ReloadCalls)
				}
			},
		},
		{
			name: "add with platform and ssl",
			args: []string{"shop.example.com"},
			setupFlags: func() {
				vhostRoot = "/home/bob/shop"
				vhostPlatform = "wordpress"
				addSSLCert = "/etc/ssl/shop.crt"
				addSSLKey = "/etc/ssl/shop.key"
			},
			validate: func(t *testing.T, h *TestHelper) {
				reg, _ := h.Agent.Agent.Repo.Load(context.Background())
				rec, ok := reg.Get("shop.example.com")
				if !ok {
					t.Fatal("expected shop.example.com in the registry")
				}
				if rec.Platform != "wordpress" {
					t.Errorf("Platform = %q, want wordpress", rec.Platform)
				}
				if !rec.HasSSL() {
					t.Error("expected record to carry SSL paths")
				}
			},
		},
		{
			name: "update preserves ssl fields",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/new_html"
			},
			setup: func(t *testing.T, h *TestHelper) {
				if err := h.SeedVHost(registry.Record{
					Domain:            "example.com",
					Root:              "/home/alice/public_html",
					SSLCertificate:    "/etc/ssl/example.crt",
					SSLCertificateKey: "/etc/ssl/example.key",
				}); err != nil {
					t.Fatalf("SeedVHost() error = %v", err)
				}
			},
			validate: func(t *testing.T, h *TestHelper) {
				reg, _ := h.Agent.Agent.Repo.Load(context.Background())
				rec, _ := reg.Get("example.com")
				if rec.Root != "/home/alice/new_html" {
					t.Errorf("Root = %q, want /home/alice/new_html", rec.Root)
				}
				if rec.SSLCertificate != "/etc/ssl/example.crt" {
					t.Errorf("SSLCertificate = %q, want the seeded path", rec.SSLCertificate)
				}
			},
		},
		{
			name:        "missing root flag",
			args:        []string{"example.com"},
			wantErr:     true,
			errContains: "--root is required",
		},
		{
			name: "invalid domain",
			args: []string{"bad domain.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
			},
			wantErr:     true,
			errContains: "cannot contain spaces",
		},
		{
			name: "relative document root",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "public_html"
			},
			wantErr:     true,
			errContains: "must be absolute",
		},
		{
			name: "ssl cert without key",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
				addSSLCert = "/etc/ssl/example.crt"
			},
			wantErr:     true,
			errContains: "must be set together",
		},
		{
			name: "without root privileges",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
			},
			setup: func(t *testing.T, h *TestHelper) {
				h.SetRootAccess(false)
			},
			wantErr:     true,
			errContains: "root privileges required",
			validate: func(t *testing.T, h *TestHelper) {
				if _, err := os.Stat(h.Agent.RegistryPath); !os.IsNotExist(err) {
					t.Error("registry file should not exist after a refused add")
				}
			},
		},
		{
			name: "no-reload skips service reload",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
				noReload = true
			},
			validate: func(t *testing.T, h *TestHelper) {
				reg, _ := h.Agent.Agent.Repo.Load(context.Background())
				if _, ok := reg.Get("example.com"); !ok {
					t.Error("expected example.com in the registry")
				}
				if h.Agent.Velo.ReloadCalls != 0 {
					t.Errorf("ReloadCalls = %d, want 0", h.Agent.Velo.ReloadCalls)
				}
			},
		},
		{
			name: "dry-run leaves registry untouched",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
				dryRun = true
			},
			validate: func(t *testing.T, h *TestHelper) {
				if _, err := os.Stat(h.Agent.RegistryPath); !os.IsNotExist(err) {
					t.Error("dry-run must not create the registry file")
				}
				if h.Agent.Velo.ReloadCalls != 0 {
					t.Errorf("ReloadCalls = %d, want 0", h.Agent.Velo.ReloadCalls)
				}
			},
		},
		{
			name: "config load failure",
			args: []string{"example.com"},
			setupFlags: func() {
				vhostRoot = "/home/alice/public_html"
			},
			setup: func(t *testing.T, h *TestHelper) {
				deps = NewMockDeps().
					WithConfigError(os.ErrPermission).
					Build()
			},
			wantErr:     true,
			errContains: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestHelper(t, t.TempDir())

			vhostRoot, vhostPlatform, addSSLCert, addSSLKey = "", "", "", ""
			noReload, dryRun, jsonOutput = false, false, false
			if tt.setupFlags != nil {
				tt.setupFlags()
			}
			if tt.setup != nil {
				tt.setup(t, h)
			}

			err := runAdd(nil, tt.args)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.errContains)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.validate != nil {
				tt.validate(t, h)
			}
		})
	}
}

func TestOutputAddDryRunPreview(t *testing.T) {
	h := NewTestHelper(t, t.TempDir())

	dryRun, jsonOutput, noReload = true, false, false
	defer func() { dryRun = false }()

	rec := registry.Record{Domain: "preview.example.com", Root: "/home/carol/site"}
	if err := outputAddDryRun(h.Agent.Agent, rec); err != nil {
		t.Fatalf("outputAddDryRun() error = %v", err)
	}

	// The preview serializes the would-be block without touching the repo.
	if _, err := os.Stat(h.Agent.RegistryPath); !os.IsNotExist(err) {
		t.Error("dry-run preview must not write the registry")
	}
}
