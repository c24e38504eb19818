package registry

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

type segmentKind int

const (
	segmentRaw segmentKind = iota
	segmentBlock
)

// segment is a contiguous run of registry lines. A block segment spans from
// its [[virtualhost]] header up to the next header or EOF, nested tables
// and comments included. Lines keep their terminators, so concatenating all
// segments reproduces the file.
type segment struct {
	kind  segmentKind
	lines []string
	rec   *Record
}

// Registry is the in-memory form of the registry file: an ordered sequence
// of segments with at most one record per domain.
type Registry struct {
	segments  []*segment
	malformed int
}

// Records returns the decoded records in file order.
func (r *Registry) Records() []Record {
	var records []Record
	for _, seg := range r.segments {
		if seg.kind == segmentBlock {
			records = append(records, *seg.rec)
		}
	}
	return records
}

// MalformedBlocks returns how many blocks were demoted to raw text during
// parsing.
func (r *Registry) MalformedBlocks() int {
	return r.malformed
}

// Get returns the record for domain.
func (r *Registry) Get(domain string) (Record, bool) {
	if seg := r.findBlock(domain); seg != nil {
		return *seg.rec, true
	}
	return Record{}, false
}

// Upsert inserts rec, or updates the existing block for rec.Domain in
// place. On update only changed fields are rewritten; empty incoming
// fields keep the existing values. Returns true when a new block was
// created.
func (r *Registry) Upsert(rec Record) bool {
	seg := r.findBlock(rec.Domain)
	if seg == nil {
		r.appendBlock(newBlockSegment(rec))
		return true
	}

	if rec.Root != "" && rec.Root != seg.rec.Root {
		seg.setField("root", rec.Root)
		seg.rec.Root = rec.Root
	}
	if rec.Platform != "" && rec.Platform != seg.rec.Platform {
		seg.setField("platform", rec.Platform)
		seg.rec.Platform = rec.Platform
	}
	if rec.SSLCertificate != "" && rec.SSLCertificate != seg.rec.SSLCertificate {
		seg.setField("ssl_certificate", rec.SSLCertificate)
		seg.rec.SSLCertificate = rec.SSLCertificate
	}
	if rec.SSLCertificateKey != "" && rec.SSLCertificateKey != seg.rec.SSLCertificateKey {
		seg.setField("ssl_certificate_key", rec.SSLCertificateKey)
		seg.rec.SSLCertificateKey = rec.SSLCertificateKey
	}
	return false
}

// Remove drops the block for domain, bytes included. Returns false when the
// domain is not present.
func (r *Registry) Remove(domain string) bool {
	for i, seg := range r.segments {
		if seg.kind == segmentBlock && seg.rec.Domain == domain {
			r.segments = append(r.segments[:i], r.segments[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveByRootPrefix drops every block whose root starts with prefix, by
// plain byte prefix. /home/bob matches /home/bob2 as well; callers relying
// on account boundaries should pass a trailing separator. An empty prefix
// removes nothing.
func (r *Registry) RemoveByRootPrefix(prefix string) int {
	if prefix == "" {
		return 0
	}

	count := 0
	kept := r.segments[:0]
	for _, seg := range r.segments {
		if seg.kind == segmentBlock && strings.HasPrefix(seg.rec.Root, prefix) {
			count++
			continue
		}
		kept = append(kept, seg)
	}
	r.segments = kept
	return count
}

// SetSSL binds the certificate pair on the block for domain. Returns false
// when the domain is not present.
func (r *Registry) SetSSL(domain, cert, key string) bool {
	seg := r.findBlock(domain)
	if seg == nil {
		return false
	}

	seg.setField("ssl_certificate", cert)
	seg.rec.SSLCertificate = cert
	seg.setField("ssl_certificate_key", key)
	seg.rec.SSLCertificateKey = key
	return true
}

// Serialize reproduces the registry file. For a freshly parsed Registry the
// output is byte-identical to the input.
func (r *Registry) Serialize() []byte {
	var buf bytes.Buffer
	for _, seg := range r.segments {
		for _, line := range seg.lines {
			buf.WriteString(line)
		}
	}
	return buf.Bytes()
}

func (r *Registry) has(domain string) bool {
	return r.findBlock(domain) != nil
}

func (r *Registry) findBlock(domain string) *segment {
	for _, seg := range r.segments {
		if seg.kind == segmentBlock && seg.rec.Domain == domain {
			return seg
		}
	}
	return nil
}

// appendBlock adds seg at the end, terminating the previous last line and
// separating the new block with a blank line when needed.
func (r *Registry) appendBlock(seg *segment) {
	if len(r.segments) > 0 {
		lastSeg := r.segments[len(r.segments)-1]
		lastLine := lastSeg.lines[len(lastSeg.lines)-1]
		if !strings.HasSuffix(lastLine, "\n") {
			lastSeg.lines[len(lastSeg.lines)-1] = lastLine + "\n"
		}
		if strings.TrimSpace(lastLine) != "" {
			seg.lines = append([]string{"\n"}, seg.lines...)
		}
	}
	r.segments = append(r.segments, seg)
}

func newBlockSegment(rec Record) *segment {
	lines := []string{
		"[[virtualhost]]\n",
		fmt.Sprintf("domain = %q\n", rec.Domain),
	}
	if rec.Root != "" {
		lines = append(lines, fmt.Sprintf("root = %q\n", rec.Root))
	}
	if rec.Platform != "" {
		lines = append(lines, fmt.Sprintf("platform = %q\n", rec.Platform))
	}
	if rec.SSLCertificate != "" {
		lines = append(lines, fmt.Sprintf("ssl_certificate = %q\n", rec.SSLCertificate))
	}
	if rec.SSLCertificateKey != "" {
		lines = append(lines, fmt.Sprintf("ssl_certificate_key = %q\n", rec.SSLCertificateKey))
	}

	recCopy := rec
	return &segment{kind: segmentBlock, lines: lines, rec: &recCopy}
}

var fieldLineRes = map[string]*regexp.Regexp{}

func init() {
	for _, key := range []string{"domain", "root", "platform", "ssl_certificate", "ssl_certificate_key"} {
		fieldLineRes[key] = regexp.MustCompile(`^(\s*)` + key + `\s*=`)
	}
}

// topLevelEnd returns the index of the first nested table header after the
// block header, or len(lines). Managed keys live before that point.
func (s *segment) topLevelEnd() int {
	for i := 1; i < len(s.lines); i++ {
		if tableHeaderRe.MatchString(trimEOL(s.lines[i])) {
			return i
		}
	}
	return len(s.lines)
}

// setField rewrites the key line in place, keeping its indentation and
// terminator, or inserts a new line after the last meaningful top-level
// line. Lines of other keys are not touched.
func (s *segment) setField(key, value string) {
	line := fmt.Sprintf("%s = %q", key, value)
	re := fieldLineRes[key]
	end := s.topLevelEnd()

	for i := 1; i < end; i++ {
		m := re.FindStringSubmatch(trimEOL(s.lines[i]))
		if m != nil {
			s.lines[i] = m[1] + line + terminatorOf(s.lines[i])
			return
		}
	}

	at := 0
	for i := 1; i < end; i++ {
		if strings.TrimSpace(trimEOL(s.lines[i])) != "" {
			at = i
		}
	}

	if !strings.HasSuffix(s.lines[at], "\n") {
		s.lines[at] += "\n"
	}
	inserted := append([]string{line + "\n"}, s.lines[at+1:]...)
	s.lines = append(s.lines[:at+1], inserted...)
}
