// Package sslbind applies issued certificates to registry records.
//
// Binding matches the exact registry domain only. Panel SSL events fire for
// addon domains and aliases that have no registry block of their own; those
// binds are deliberately a logged no-op rather than an error, so panel hook
// pipelines never fail on them. Alias and SAN matching is out of scope.
package sslbind

import (
	"context"
	"time"

	"github.com/unknwon/com"

	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
)

// Reloader pushes registry changes into the running server.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Synchronizer binds certificate pairs to registry records.
type Synchronizer struct {
	repo     *registry.Repository
	reloader Reloader
	log      logger.Logger
}

// NewSynchronizer creates a Synchronizer. reloader may be nil when no
// running server should be signalled.
func NewSynchronizer(repo *registry.Repository, reloader Reloader, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		repo:     repo,
		reloader: reloader,
		log:      log,
	}
}

// Bind sets the certificate pair on the record whose domain equals domain.
// A domain without a registry block is a logged no-op returning
// (false, nil). After a successful bind the server is reloaded best-effort;
// a reload failure is logged, never returned, and the binding stays.
func (s *Synchronizer) Bind(ctx context.Context, domain, certPath, keyPath string) (bool, error) {
	if domain == "" {
		return false, errors.Validation("domain cannot be empty")
	}
	if certPath == "" || keyPath == "" {
		return false, errors.Validation("certificate and key paths are required")
	}

	// The panel may deliver paths before the files land on this host.
	if !com.IsFile(certPath) {
		s.log.Warning("sslbind: certificate file %s does not exist", certPath)
	}
	if !com.IsFile(keyPath) {
		s.log.Warning("sslbind: key file %s does not exist", keyPath)
	}

	bound, err := s.repo.SetSSL(ctx, domain, certPath, keyPath)
	if err != nil {
		return false, err
	}
	if !bound {
		s.log.Warning("sslbind: domain %s not present in registry, skipping", domain)
		return false, nil
	}

	s.log.Info("sslbind: bound certificate %s to %s", certPath, domain)

	if s.reloader != nil {
		if err := s.reloader.Reload(ctx); err != nil {
			s.log.Warning("sslbind: reload after binding failed: %v", err)
		}
	}

	return true, nil
}

// Binding describes the SSL state of one record for reporting.
type Binding struct {
	Domain      string    `json:"domain"`
	CertPath    string    `json:"cert_path"`
	KeyPath     string    `json:"key_path"`
	CertPresent bool      `json:"cert_present"`
	KeyPresent  bool      `json:"key_present"`
	NotAfter    time.Time `json:"not_after,omitzero"`
	Issuer      string    `json:"issuer,omitempty"`
}

// Bindings reports every record that carries SSL fields, with on-disk file
// presence and certificate expiry where the certificate can be read.
func (s *Synchronizer) Bindings(ctx context.Context) ([]Binding, error) {
	reg, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	var bindings []Binding
	for _, rec := range reg.Records() {
		if rec.SSLCertificate == "" && rec.SSLCertificateKey == "" {
			continue
		}

		b := Binding{
			Domain:      rec.Domain,
			CertPath:    rec.SSLCertificate,
			KeyPath:     rec.SSLCertificateKey,
			CertPresent: com.IsFile(rec.SSLCertificate),
			KeyPresent:  com.IsFile(rec.SSLCertificateKey),
		}

		if b.CertPresent {
			if notAfter, issuer, err := CertDetails(rec.SSLCertificate); err == nil {
				b.NotAfter = notAfter
				b.Issuer = issuer
			} else {
				s.log.Debug("sslbind: cannot read certificate %s: %v", rec.SSLCertificate, err)
			}
		}

		bindings = append(bindings, b)
	}

	return bindings, nil
}
