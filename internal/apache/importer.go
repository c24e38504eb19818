// Package apache imports virtual hosts from a live Apache configuration
// into the registry. The import runs standalone (veloctl import) and as the
// first step of a switchover to VeloServe, so records the operator already
// customized must survive: an existing record keeps its root and platform,
// and only gains SSL paths when it has none.
package apache

import (
	"strings"

	"github.com/r2dtools/goapacheconf"
	"github.com/unknwon/com"

	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
	"github.com/veloserve/veloctl/internal/registry"
)

const (
	certDirective    = "SSLCertificateFile"
	certKeyDirective = "SSLCertificateKeyFile"
)

// ImportStats summarizes a merge
type ImportStats struct {
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Total returns how many records the merge touched
func (s ImportStats) Total() int {
	return s.Imported + s.Updated
}

// Importer reads vhost definitions out of an Apache server root
type Importer struct {
	serverRoot string
	log        logger.Logger
}

// NewImporter creates an Importer for the given Apache server root
// (/etc/apache2 on Debian-flavored hosts, /etc/httpd elsewhere)
func NewImporter(serverRoot string, log logger.Logger) *Importer {
	if log == nil {
		log = logger.NilLogger{}
	}
	return &Importer{serverRoot: serverRoot, log: log}
}

// Discover parses the Apache configuration and returns one candidate record
// per primary ServerName. Blocks without a ServerName are skipped. The :80
// and :443 blocks of the same domain collapse into one candidate, the first
// block wins the document root and any block may contribute the SSL pair.
func (im *Importer) Discover() ([]registry.Record, error) {
	conf, err := goapacheconf.GetConfig(im.serverRoot, "")
	if err != nil {
		return nil, errors.Parse("could not parse apache config", err)
	}

	byDomain := make(map[string]int)
	var records []registry.Record

	for _, block := range conf.FindVirtualHostBlocks() {
		serverNames := block.GetServerNames()
		if len(serverNames) == 0 {
			im.log.Debug("apache import: skipping vhost block in %s without ServerName", block.FilePath)
			continue
		}

		domain := strings.ToLower(strings.Trim(serverNames[0], "\""))
		if domain == "" {
			continue
		}

		root := strings.Trim(block.GetDocumentRoot(), "\"")
		cert := lastDirectiveValue(block, certDirective)
		key := lastDirectiveValue(block, certKeyDirective)

		if i, ok := byDomain[domain]; ok {
			if records[i].Root == "" {
				records[i].Root = root
			}
			if records[i].SSLCertificate == "" && cert != "" {
				records[i].SSLCertificate = cert
				records[i].SSLCertificateKey = key
			}
			continue
		}

		byDomain[domain] = len(records)
		records = append(records, registry.Record{
			Domain:            domain,
			Root:              root,
			SSLCertificate:    cert,
			SSLCertificateKey: key,
		})
	}

	im.log.Debug("apache import: discovered %d vhosts under %s", len(records), im.serverRoot)
	return records, nil
}

// Merge applies discovered candidates to the registry. New domains are
// inserted as-is. Existing records keep their root and platform and only
// gain the SSL pair when they have none. Candidates whose certificate file
// is missing on disk are imported without SSL.
func (im *Importer) Merge(reg *registry.Registry, candidates []registry.Record) ImportStats {
	var stats ImportStats

	for _, cand := range candidates {
		cert, key := cand.SSLCertificate, cand.SSLCertificateKey
		if cert != "" && !com.IsFile(cert) {
			im.log.Warning("apache import: certificate %s for %s not found on disk, importing without ssl", cert, cand.Domain)
			cert, key = "", ""
		}

		existing, ok := reg.Get(cand.Domain)
		if !ok {
			reg.Upsert(registry.Record{
				Domain:            cand.Domain,
				Root:              cand.Root,
				SSLCertificate:    cert,
				SSLCertificateKey: key,
			})
			stats.Imported++
			continue
		}

		if !existing.HasSSL() && cert != "" && key != "" {
			reg.SetSSL(cand.Domain, cert, key)
			stats.Updated++
			continue
		}

		stats.Unchanged++
	}

	return stats
}

func lastDirectiveValue(block goapacheconf.VirtualHostBlock, name string) string {
	directives := block.FindDirectives(goapacheconf.DirectiveName(name))
	if len(directives) == 0 {
		return ""
	}
	return strings.Trim(directives[len(directives)-1].GetFirstValue(), "\"")
}
