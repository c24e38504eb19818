// Package monitor toggles entries in the chkservd watchdog configuration.
// The watchdog restarts whichever services its flag file marks with a 1, so
// a switchover must flip these flags before and after moving traffic or the
// watchdog will resurrect the service that was just stopped.
//
// The flag file is /etc/chkserv.d/chkservd.conf with one "name:1" or
// "name:0" line per service. Lines for other services are preserved byte
// for byte. Writes go through a temp file and rename.
package monitor

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
)

const confFile = "chkservd.conf"

// Watchdog controls which services the external watchdog keeps alive
type Watchdog interface {
	// Enable marks a service as monitored
	Enable(service string) error

	// Disable marks a service as unmonitored. Disabling a service with
	// no entry is a no-op.
	Disable(service string) error

	// IsMonitored reports whether a service is currently monitored
	IsMonitored(service string) (bool, error)
}

// ChkservdWatchdog implements Watchdog over the chkservd flag file
type ChkservdWatchdog struct {
	dir string
	log logger.Logger
}

// NewChkservd creates a Watchdog rooted at the given chkserv.d directory
func NewChkservd(dir string, log logger.Logger) *ChkservdWatchdog {
	if log == nil {
		log = logger.NilLogger{}
	}
	return &ChkservdWatchdog{dir: dir, log: log}
}

// Path returns the flag file path
func (c *ChkservdWatchdog) Path() string {
	return filepath.Join(c.dir, confFile)
}

// Enable marks a service as monitored, appending an entry when none exists
func (c *ChkservdWatchdog) Enable(service string) error {
	return c.setFlag(service, true)
}

// Disable marks a service as unmonitored
func (c *ChkservdWatchdog) Disable(service string) error {
	return c.setFlag(service, false)
}

// IsMonitored reports whether the flag file marks the service with a 1.
// A missing file or missing entry means unmonitored.
func (c *ChkservdWatchdog) IsMonitored(service string) (bool, error) {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.IO("failed to read watchdog config", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		name, flag, ok := splitEntry(line)
		if ok && name == service {
			return flag == "1", nil
		}
	}
	return false, nil
}

func (c *ChkservdWatchdog) setFlag(service string, monitored bool) error {
	flag := "0"
	if monitored {
		flag = "1"
	}

	data, err := os.ReadFile(c.Path())
	if err != nil && !os.IsNotExist(err) {
		return errors.IO("failed to read watchdog config", err)
	}

	lines := splitAfterLines(string(data))
	found := false
	for i, line := range lines {
		name, _, ok := splitEntry(line)
		if !ok || name != service {
			continue
		}
		lines[i] = fmt.Sprintf("%s:%s%s", service, flag, terminatorOf(line))
		found = true
	}

	if !found {
		if !monitored {
			// No entry already means unmonitored
			return nil
		}
		if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
			lines[n-1] += "\n"
		}
		lines = append(lines, service+":1\n")
	}

	updated := []byte(strings.Join(lines, ""))
	if bytes.Equal(updated, data) {
		return nil
	}

	c.log.Debug("monitor: setting %s:%s in %s", service, flag, c.Path())
	return c.writeAtomic(updated)
}

// writeAtomic replaces the flag file via a temp file in the same directory
func (c *ChkservdWatchdog) writeAtomic(content []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return errors.IO("failed to create watchdog config directory", err)
	}

	mode := fs.FileMode(0644)
	if info, err := os.Stat(c.Path()); err == nil {
		mode = info.Mode()
	}

	tmp, err := os.CreateTemp(c.dir, confFile+".tmp.")
	if err != nil {
		return errors.IO("failed to create temp watchdog config", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.IO("failed to write watchdog config", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.IO("failed to set watchdog config permissions", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.IO("failed to close temp watchdog config", err)
	}
	if err := os.Rename(tmpPath, c.Path()); err != nil {
		os.Remove(tmpPath)
		return errors.IO("failed to replace watchdog config", err)
	}
	return nil
}

// splitEntry parses a "name:flag" line, ignoring blanks and comments
func splitEntry(line string) (name, flag string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	name, flag, ok = strings.Cut(trimmed, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(flag), true
}

// splitAfterLines splits content into lines keeping the terminators
func splitAfterLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func terminatorOf(line string) string {
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}
