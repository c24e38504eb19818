package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/veloserve/veloctl/internal/logger"
)

var (
	blockHeaderRe = regexp.MustCompile(`^\s*\[\[\s*virtualhost\s*\]\]\s*(?:#.*)?$`)
	tableHeaderRe = regexp.MustCompile(`^\s*\[[^\]]+\]\]?\s*(?:#.*)?$`)
)

// blockFields are the managed keys of a [[virtualhost]] block. Unknown keys
// and nested tables pass through the decoder untouched.
type blockFields struct {
	Domain            string `toml:"domain"`
	Root              string `toml:"root"`
	Platform          string `toml:"platform"`
	SSLCertificate    string `toml:"ssl_certificate"`
	SSLCertificateKey string `toml:"ssl_certificate_key"`
}

// Parse segments registry content into raw text and virtualhost blocks.
// A block that fails to decode, lacks a domain, or repeats an earlier
// domain is kept as raw text (its bytes survive) but yields no Record;
// each such block is logged and counted. Parse never fails: worst case
// the result carries zero records.
func Parse(data []byte, log logger.Logger) *Registry {
	reg := &Registry{}
	if len(data) == 0 {
		return reg
	}

	lines := splitLines(data)

	var raw []string
	flushRaw := func() {
		if len(raw) > 0 {
			reg.segments = append(reg.segments, &segment{kind: segmentRaw, lines: raw})
			raw = nil
		}
	}

	i := 0
	for i < len(lines) {
		if !blockHeaderRe.MatchString(trimEOL(lines[i])) {
			raw = append(raw, lines[i])
			i++
			continue
		}

		flushRaw()

		start := i
		i++
		for i < len(lines) && !blockHeaderRe.MatchString(trimEOL(lines[i])) {
			i++
		}
		blockLines := lines[start:i]
		startLine := start + 1

		rec, err := decodeBlock(blockLines)
		switch {
		case err != nil:
			log.Warning("registry: skipping malformed virtualhost block at line %d: %v", startLine, err)
			reg.malformed++
			raw = append(raw, blockLines...)
		case rec.Domain == "":
			log.Warning("registry: skipping virtualhost block at line %d: missing domain", startLine)
			reg.malformed++
			raw = append(raw, blockLines...)
		case reg.has(rec.Domain):
			log.Warning("registry: skipping duplicate virtualhost block for %s at line %d", rec.Domain, startLine)
			reg.malformed++
			raw = append(raw, blockLines...)
		default:
			reg.segments = append(reg.segments, &segment{kind: segmentBlock, lines: blockLines, rec: rec})
		}
	}
	flushRaw()

	return reg
}

func decodeBlock(lines []string) (*Record, error) {
	var doc struct {
		VirtualHost []blockFields `toml:"virtualhost"`
	}

	if err := toml.Unmarshal([]byte(strings.Join(lines, "")), &doc); err != nil {
		return nil, err
	}
	if len(doc.VirtualHost) == 0 {
		return nil, fmt.Errorf("no virtualhost table decoded")
	}

	f := doc.VirtualHost[0]
	return &Record{
		Domain:            f.Domain,
		Root:              f.Root,
		Platform:          f.Platform,
		SSLCertificate:    f.SSLCertificate,
		SSLCertificateKey: f.SSLCertificateKey,
	}, nil
}

// splitLines splits keeping line terminators, so that joining the result
// reproduces the input exactly.
func splitLines(data []byte) []string {
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}

func terminatorOf(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}
