package sslbind

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
)

const testRegistry = `[[virtualhost]]
domain = "example.com"
root = "/home/alice/public_html"

[[virtualhost]]
domain = "shop.example.net"
root = "/home/bob/public_html"
ssl_certificate = "/etc/ssl/shop.crt"
ssl_certificate_key = "/etc/ssl/shop.key"
`

type mockReloader struct {
	calls int
	err   error
}

func (m *mockReloader) Reload(ctx context.Context) error {
	m.calls++
	return m.err
}

func newTestSynchronizer(t *testing.T) (*Synchronizer, *mockReloader, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "veloserve.conf")
	if err := os.WriteFile(path, []byte(testRegistry), 0644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	repo := registry.NewRepository(path, time.Second, 3, &logger.NilLogger{})
	reloader := &mockReloader{}
	return NewSynchronizer(repo, reloader, &logger.NilLogger{}), reloader, path
}

func TestSynchronizer_Bind(t *testing.T) {
	t.Run("binds existing domain and reloads", func(t *testing.T) {
		sync, reloader, path := newTestSynchronizer(t)

		bound, err := sync.Bind(context.Background(), "example.com", "/etc/ssl/alice.crt", "/etc/ssl/alice.key")
		if err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		if !bound {
			t.Error("expected bound=true")
		}
		if reloader.calls != 1 {
			t.Errorf("expected 1 reload, got %d", reloader.calls)
		}

		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "ssl_certificate = \"/etc/ssl/alice.crt\"") {
			t.Error("certificate path not written to registry")
		}
		if !strings.Contains(string(data), "ssl_certificate_key = \"/etc/ssl/alice.key\"") {
			t.Error("key path not written to registry")
		}
	})

	t.Run("unknown domain is a no-op", func(t *testing.T) {
		sync, reloader, path := newTestSynchronizer(t)

		bound, err := sync.Bind(context.Background(), "unknown.example.org", "/etc/ssl/x.crt", "/etc/ssl/x.key")
		if err != nil {
			t.Fatalf("Bind should not fail on unknown domain: %v", err)
		}
		if bound {
			t.Error("expected bound=false")
		}
		if reloader.calls != 0 {
			t.Errorf("no-op bind must not reload, got %d calls", reloader.calls)
		}

		data, _ := os.ReadFile(path)
		if string(data) != testRegistry {
			t.Error("no-op bind must not touch the registry")
		}
	})

	t.Run("reload failure does not undo the binding", func(t *testing.T) {
		sync, reloader, path := newTestSynchronizer(t)
		reloader.err = errors.New("reload exploded")

		bound, err := sync.Bind(context.Background(), "example.com", "/etc/ssl/alice.crt", "/etc/ssl/alice.key")
		if err != nil {
			t.Fatalf("Bind should swallow reload failures: %v", err)
		}
		if !bound {
			t.Error("expected bound=true")
		}

		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "/etc/ssl/alice.crt") {
			t.Error("binding should persist despite reload failure")
		}
	})

	t.Run("missing certificate files are a warning only", func(t *testing.T) {
		sync, _, _ := newTestSynchronizer(t)

		bound, err := sync.Bind(context.Background(), "example.com", "/nonexistent/cert.pem", "/nonexistent/key.pem")
		if err != nil {
			t.Fatalf("Bind should not fail on missing files: %v", err)
		}
		if !bound {
			t.Error("expected bound=true")
		}
	})

	t.Run("validation", func(t *testing.T) {
		sync, _, _ := newTestSynchronizer(t)
		ctx := context.Background()

		if _, err := sync.Bind(ctx, "", "/a.crt", "/a.key"); errors.Code(err) != errors.ErrCodeValidation {
			t.Errorf("expected validation error for empty domain, got %v", err)
		}
		if _, err := sync.Bind(ctx, "example.com", "", "/a.key"); errors.Code(err) != errors.ErrCodeValidation {
			t.Errorf("expected validation error for empty cert path, got %v", err)
		}
		if _, err := sync.Bind(ctx, "example.com", "/a.crt", ""); errors.Code(err) != errors.ErrCodeValidation {
			t.Errorf("expected validation error for empty key path, got %v", err)
		}
	})
}

// writeSelfSigned writes a short-lived self-signed certificate and returns
// its path and expiry.
func writeSelfSigned(t *testing.T, dir string) (string, time.Time) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	notAfter := time.Now().Add(90 * 24 * time.Hour).Truncate(time.Second).UTC()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		Issuer:       pkix.Name{CommonName: "Test CA"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		t.Fatalf("certificate creation failed: %v", err)
	}

	certPath := filepath.Join(dir, "cert.pem")
	out, err := os.Create(certPath)
	if err != nil {
		t.Fatalf("failed to create cert file: %v", err)
	}
	defer out.Close()

	if err := pem.Encode(out, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		t.Fatalf("failed to encode certificate: %v", err)
	}

	return certPath, notAfter
}

func TestSynchronizer_Bindings(t *testing.T) {
	dir := t.TempDir()
	certPath, notAfter := writeSelfSigned(t, dir)

	registryContent := "[[virtualhost]]\n" +
		"domain = \"plain.example.com\"\n" +
		"root = \"/srv/plain\"\n" +
		"\n" +
		"[[virtualhost]]\n" +
		"domain = \"secure.example.com\"\n" +
		"root = \"/srv/secure\"\n" +
		"ssl_certificate = \"" + certPath + "\"\n" +
		"ssl_certificate_key = \"" + filepath.Join(dir, "missing.key") + "\"\n"

	path := filepath.Join(dir, "veloserve.conf")
	if err := os.WriteFile(path, []byte(registryContent), 0644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	repo := registry.NewRepository(path, time.Second, 3, &logger.NilLogger{})
	sync := NewSynchronizer(repo, nil, &logger.NilLogger{})

	bindings, err := sync.Bindings(context.Background())
	if err != nil {
		t.Fatalf("Bindings failed: %v", err)
	}

	// Records without SSL fields are not reported.
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}

	b := bindings[0]
	if b.Domain != "secure.example.com" {
		t.Errorf("unexpected domain: %s", b.Domain)
	}
	if !b.CertPresent {
		t.Error("certificate file should be reported present")
	}
	if b.KeyPresent {
		t.Error("missing key file should be reported absent")
	}
	if !b.NotAfter.Equal(notAfter) {
		t.Errorf("NotAfter = %v, want %v", b.NotAfter, notAfter)
	}
}
