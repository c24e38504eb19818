package registry

import "strings"

// Record is one [[virtualhost]] block of the VeloServe registry, reduced to
// the fields the agent manages. Everything else in the block is opaque and
// preserved byte-for-byte.
type Record struct {
	Domain            string
	Root              string
	Platform          string
	SSLCertificate    string
	SSLCertificateKey string
}

// Owner derives the account name from a /home/<user>/... document root.
// Roots outside /home return "".
func (r Record) Owner() string {
	rest, found := strings.CutPrefix(r.Root, "/home/")
	if !found {
		return ""
	}
	user, _, _ := strings.Cut(rest, "/")
	return user
}

// HasSSL reports whether both SSL fields are bound.
func (r Record) HasSSL() bool {
	return r.SSLCertificate != "" && r.SSLCertificateKey != ""
}
