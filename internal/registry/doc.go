// Package registry reads and writes the VeloServe virtual-host registry.
//
// The registry is a TOML file, by default /etc/veloserve/veloserve.conf,
// shared with the VeloServe server itself: global sections followed by
// repeated [[virtualhost]] blocks. The agent manages five keys per block
// (domain, root, platform, ssl_certificate, ssl_certificate_key) and treats
// everything else as opaque.
//
// Example registry:
//
//	[server]
//	listen = 80
//
//	[[virtualhost]]
//	domain = "example.com"
//	root = "/home/alice/public_html"
//	platform = "wordpress"
//	index = ["index.php", "index.html"]
//
//	[virtualhost.cache]
//	enabled = true
//
// # Byte Preservation
//
// The server team and administrators hand-edit this file, so the parser
// never rewrites what it does not manage. Content is segmented into raw
// text and virtualhost blocks with line terminators intact; Serialize
// concatenates the segments, which makes Parse followed by Serialize the
// identity on any input. Mutations rewrite only the affected key lines of
// the affected block. Unknown keys, nested tables, comments and blank
// lines pass through untouched.
//
// Blocks that fail to decode, lack a domain, or repeat an earlier domain
// yield no Record but keep their bytes; they are logged and counted via
// MalformedBlocks.
//
// # Concurrency and Durability
//
// Repository wraps the file with a sidecar flock (<registry>.lock):
// mutations take the exclusive lock, reads the shared one, both with a
// bounded wait that surfaces LOCK_TIMEOUT on contention. Every write first
// copies the current file to <registry>.bak.<timestamp> and then replaces
// the registry atomically through a same-directory temp file, so a crash
// mid-write can never leave a half-written registry.
//
// # Usage
//
//	repo := registry.NewRepository(path, 10*time.Second, 10, log)
//
//	created, err := repo.AddOrUpdate(ctx, registry.Record{
//	    Domain: "example.com",
//	    Root:   "/home/alice/public_html",
//	})
//
//	err = repo.Update(ctx, func(reg *registry.Registry) error {
//	    if !reg.SetSSL("example.com", certPath, keyPath) {
//	        return registry.ErrNoChange
//	    }
//	    return nil
//	})
package registry
