// Package platform detects the local Apache installation layout.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ApacheLayout describes where the local Apache installation keeps its
// configuration and how to address it.
type ApacheLayout struct {
	ServerRoot string // configuration root passed to the parser
	Unit       string // systemd unit name
	CtlPath    string // control binary for graceful reloads
}

// DetectApache returns the Apache layout for this host. cPanel and RHEL
// flavors keep the configuration under /etc/httpd, Debian flavors under
// /etc/apache2. /etc/httpd wins when both exist since the agent targets
// panel hosts.
func DetectApache() (*ApacheLayout, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return detectApache("/")
}

// detectApache probes for Apache configuration roots under fsRoot.
func detectApache(fsRoot string) (*ApacheLayout, error) {
	if httpdRoot := filepath.Join(fsRoot, "etc", "httpd"); pathExists(httpdRoot) {
		return &ApacheLayout{
			ServerRoot: httpdRoot,
			Unit:       "httpd",
			CtlPath:    "apachectl",
		}, nil
	}

	if apache2Root := filepath.Join(fsRoot, "etc", "apache2"); pathExists(apache2Root) {
		return &ApacheLayout{
			ServerRoot: apache2Root,
			Unit:       "apache2",
			CtlPath:    "apache2ctl",
		}, nil
	}

	return nil, fmt.Errorf("apache configuration not found (checked /etc/httpd and /etc/apache2)")
}

// pathExists checks if a path exists on the filesystem.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Platform returns a string describing the current platform.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
