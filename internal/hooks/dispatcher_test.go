package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
	"github.com/veloserve/veloctl/internal/sslbind"
)

const hookRegistry = `[[virtualhost]]
domain = "example.com"
root = "/home/alice/public_html"

[[virtualhost]]
domain = "blog.example.com"
root = "/home/alice/blog"

[[virtualhost]]
domain = "other.net"
root = "/home/bob/public_html"
`

type mockReloader struct {
	calls int
	err   error
}

func (m *mockReloader) Reload(ctx context.Context) error {
	m.calls++
	return m.err
}

type testDispatcher struct {
	*Dispatcher
	repo         *registry.Repository
	engineReload *mockReloader
	sslReload    *mockReloader
	path         string
}

func newTestDispatcher(t *testing.T) *testDispatcher {
	t.Helper()

	path := filepath.Join(t.TempDir(), "veloserve.conf")
	repo := registry.NewRepository(path, time.Second, 0, logger.NilLogger{})

	engineReload := &mockReloader{}
	sslReload := &mockReloader{}
	sync := sslbind.NewSynchronizer(repo, sslReload, logger.NilLogger{})

	return &testDispatcher{
		Dispatcher:   NewDispatcher(repo, sync, engineReload, logger.NilLogger{}),
		repo:         repo,
		engineReload: engineReload,
		sslReload:    sslReload,
		path:         path,
	}
}

func (td *testDispatcher) seed(t *testing.T) {
	t.Helper()
	if err := os.WriteFile(td.path, []byte(hookRegistry), 0644); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}
}

func (td *testDispatcher) domains(t *testing.T) []string {
	t.Helper()
	reg, err := td.repo.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	var domains []string
	for _, rec := range reg.Records() {
		domains = append(domains, rec.Domain)
	}
	return domains
}

func accountEvent(name string, data map[string]any) LifecycleEvent {
	return LifecycleEvent{Category: "Accounts", Name: name, Data: data}
}

func TestDispatcher_AccountCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("docroot wins", func(t *testing.T) {
		td := newTestDispatcher(t)

		outcome, err := td.Dispatch(ctx, accountEvent("Create", map[string]any{
			"user":    "alice",
			"domain":  "example.org",
			"homedir": "/home/alice",
			"docroot": "/home/alice/domains/example.org",
		}))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if outcome != OutcomeHandled {
			t.Errorf("expected handled, got %s", outcome)
		}

		reg, _ := td.repo.Load(ctx)
		rec, ok := reg.Get("example.org")
		if !ok {
			t.Fatal("expected record for example.org")
		}
		if rec.Root != "/home/alice/domains/example.org" {
			t.Errorf("unexpected root: %s", rec.Root)
		}
		if td.engineReload.calls != 1 {
			t.Errorf("expected 1 reload, got %d", td.engineReload.calls)
		}
	})

	t.Run("homedir fallback", func(t *testing.T) {
		td := newTestDispatcher(t)

		if _, err := td.Dispatch(ctx, accountEvent("Create", map[string]any{
			"domain":  "example.org",
			"homedir": "/home/carol",
		})); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		reg, _ := td.repo.Load(ctx)
		rec, _ := reg.Get("example.org")
		if rec.Root != "/home/carol/public_html" {
			t.Errorf("unexpected root: %s", rec.Root)
		}
	})

	t.Run("user fallback", func(t *testing.T) {
		td := newTestDispatcher(t)

		if _, err := td.Dispatch(ctx, accountEvent("Create", map[string]any{
			"domain": "example.org",
			"user":   "dave",
		})); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		reg, _ := td.repo.Load(ctx)
		rec, _ := reg.Get("example.org")
		if rec.Root != "/home/dave/public_html" {
			t.Errorf("unexpected root: %s", rec.Root)
		}
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		td := newTestDispatcher(t)
		event := accountEvent("Create", map[string]any{
			"domain":  "example.org",
			"homedir": "/home/alice",
		})

		for i := 0; i < 2; i++ {
			if _, err := td.Dispatch(ctx, event); err != nil {
				t.Fatalf("Dispatch %d failed: %v", i, err)
			}
		}

		if domains := td.domains(t); len(domains) != 1 {
			t.Errorf("expected 1 record, got %v", domains)
		}
	})

	t.Run("missing domain is ignored", func(t *testing.T) {
		td := newTestDispatcher(t)

		outcome, err := td.Dispatch(ctx, accountEvent("Create", map[string]any{"user": "alice"}))
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if outcome != OutcomeIgnored {
			t.Errorf("expected ignored, got %s", outcome)
		}
		if td.engineReload.calls != 0 {
			t.Errorf("expected no reload, got %d", td.engineReload.calls)
		}
		if _, err := os.Stat(td.path); !os.IsNotExist(err) {
			t.Error("expected no registry file to be written")
		}
	})
}

func TestDispatcher_AccountRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes domain and home vhosts", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)

		outcome, err := td.Dispatch(ctx, accountEvent("Remove", map[string]any{
			"user":    "alice",
			"domain":  "example.com",
			"homedir": "/home/alice",
		}))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if outcome != OutcomeHandled {
			t.Errorf("expected handled, got %s", outcome)
		}

		domains := td.domains(t)
		if len(domains) != 1 || domains[0] != "other.net" {
			t.Errorf("expected only other.net to survive, got %v", domains)
		}
		if td.engineReload.calls != 1 {
			t.Errorf("expected 1 reload, got %d", td.engineReload.calls)
		}
	})

	t.Run("user prefix fallback", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)

		if _, err := td.Dispatch(ctx, accountEvent("Remove", map[string]any{"user": "bob"})); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}

		for _, domain := range td.domains(t) {
			if domain == "other.net" {
				t.Error("expected bob's vhost to be removed")
			}
		}
	})

	t.Run("unknown account is a no-op", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)

		outcome, err := td.Dispatch(ctx, accountEvent("Remove", map[string]any{
			"user":    "ghost",
			"domain":  "ghost.example",
			"homedir": "/home/ghost",
		}))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if outcome != OutcomeHandled {
			t.Errorf("expected handled, got %s", outcome)
		}

		if td.engineReload.calls != 0 {
			t.Errorf("expected no reload for a no-op, got %d", td.engineReload.calls)
		}
		backups, _ := filepath.Glob(td.path + ".bak.*")
		if len(backups) != 0 {
			t.Errorf("expected no backup for a no-op, got %v", backups)
		}
	})
}

func TestDispatcher_InstallSSL(t *testing.T) {
	ctx := context.Background()
	sslEvent := func(data map[string]any) LifecycleEvent {
		return LifecycleEvent{Category: "SSL", Name: "installssl", Data: data}
	}

	t.Run("binds through the synchronizer", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)

		outcome, err := td.Dispatch(ctx, sslEvent(map[string]any{
			"domain":    "example.com",
			"cert_path": "/var/cpanel/ssl/example.com.crt",
			"key_path":  "/var/cpanel/ssl/example.com.key",
		}))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if outcome != OutcomeHandled {
			t.Errorf("expected handled, got %s", outcome)
		}

		reg, _ := td.repo.Load(ctx)
		rec, _ := reg.Get("example.com")
		if !rec.HasSSL() {
			t.Error("expected ssl to be bound")
		}
		if td.sslReload.calls != 1 {
			t.Errorf("expected 1 synchronizer reload, got %d", td.sslReload.calls)
		}
		if td.engineReload.calls != 0 {
			t.Errorf("expected no dispatcher reload for ssl, got %d", td.engineReload.calls)
		}
	})

	t.Run("unknown domain stays a no-op", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)
		before, _ := os.ReadFile(td.path)

		outcome, err := td.Dispatch(ctx, sslEvent(map[string]any{
			"domain":    "addon.example.net",
			"cert_path": "/var/cpanel/ssl/addon.crt",
			"key_path":  "/var/cpanel/ssl/addon.key",
		}))
		if err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if outcome != OutcomeHandled {
			t.Errorf("expected handled, got %s", outcome)
		}

		after, _ := os.ReadFile(td.path)
		if string(before) != string(after) {
			t.Error("registry changed for an unknown domain")
		}
	})

	t.Run("incomplete payload is ignored", func(t *testing.T) {
		td := newTestDispatcher(t)
		td.seed(t)

		outcome, err := td.Dispatch(ctx, sslEvent(map[string]any{"domain": "example.com"}))
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if outcome != OutcomeIgnored {
			t.Errorf("expected ignored, got %s", outcome)
		}
	})
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	td := newTestDispatcher(t)
	td.seed(t)
	before, _ := os.ReadFile(td.path)

	outcome, err := td.Dispatch(context.Background(), LifecycleEvent{
		Category: "Email",
		Name:     "Create",
		Data:     map[string]any{"user": "alice"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("expected ignored, got %s", outcome)
	}

	after, _ := os.ReadFile(td.path)
	if string(before) != string(after) {
		t.Error("registry changed for an unknown event")
	}
}

func TestDispatcher_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veloserve.conf")
	repo := registry.NewRepository(path, 150*time.Millisecond, 0, logger.NilLogger{})
	sync := sslbind.NewSynchronizer(repo, nil, logger.NilLogger{})
	d := NewDispatcher(repo, sync, nil, logger.NilLogger{})

	holder := flock.New(path + ".lock")
	if err := holder.Lock(); err != nil {
		t.Fatalf("failed to hold lock: %v", err)
	}
	defer holder.Unlock()

	outcome, err := d.Dispatch(context.Background(), accountEvent("Create", map[string]any{
		"domain":  "example.org",
		"homedir": "/home/alice",
	}))
	if outcome != OutcomeFailed {
		t.Errorf("expected failed, got %s", outcome)
	}
	if !errors.Is(err, errors.ErrLockTimeout) {
		t.Errorf("expected lock timeout, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	hookCmd := "/usr/local/bin/veloctl hook"

	descriptors := Describe(hookCmd)
	if len(descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(descriptors))
	}

	want := []Descriptor{
		{Category: "Accounts", Event: "Create", Stage: "post", ExecType: "binary", Hook: hookCmd},
		{Category: "Accounts", Event: "Remove", Stage: "post", ExecType: "binary", Hook: hookCmd},
		{Category: "SSL", Event: "installssl", Stage: "post", ExecType: "binary", Hook: hookCmd},
	}
	for i, desc := range descriptors {
		if desc != want[i] {
			t.Errorf("descriptor %d: expected %+v, got %+v", i, want[i], desc)
		}
	}

	t.Run("every subscription has a handler", func(t *testing.T) {
		d := NewDispatcher(nil, nil, nil, nil)
		if len(d.handlers) != len(subscriptions) {
			t.Errorf("handler table and subscriptions diverge: %d vs %d", len(d.handlers), len(subscriptions))
		}
		for _, key := range subscriptions {
			if _, ok := d.handlers[key]; !ok {
				t.Errorf("subscription %s has no handler", key)
			}
		}
	})
}
