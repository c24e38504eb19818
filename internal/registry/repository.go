package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
)

const (
	lockRetryDelay   = 100 * time.Millisecond
	backupTimeFormat = "20060102-150405"
)

// ErrNoChange can be returned from an Update function to discard the write.
// The registry file is left untouched and no backup is taken.
var ErrNoChange = errors.New("registry: no change")

// Repository serializes access to the registry file. Mutations run under an
// exclusive bounded-wait lock on the sidecar lock file, reads under a shared
// one; hook invocations, the admin API and the switchover importer can
// therefore run concurrently without corrupting the file.
type Repository struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
	backupKeep  int
	log         logger.Logger
}

// NewRepository creates a repository for the registry at path. backupKeep
// bounds how many timestamped backups are retained; 0 keeps all.
func NewRepository(path string, lockTimeout time.Duration, backupKeep int, log logger.Logger) *Repository {
	return &Repository{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: lockTimeout,
		backupKeep:  backupKeep,
		log:         log,
	}
}

// Path returns the registry file path.
func (r *Repository) Path() string {
	return r.path
}

// Load reads and parses the registry under the shared lock. A missing file
// loads as an empty registry.
func (r *Repository) Load(ctx context.Context) (*Registry, error) {
	unlock, err := r.acquire(ctx, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.loadLocked()
}

// Save writes reg under the exclusive lock.
func (r *Repository) Save(ctx context.Context, reg *Registry) error {
	unlock, err := r.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	return r.saveLocked(reg)
}

// Update runs fn on the current registry and writes the result back, all
// under one exclusive lock. When fn returns ErrNoChange the file is left
// untouched and Update succeeds.
func (r *Repository) Update(ctx context.Context, fn func(*Registry) error) error {
	unlock, err := r.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	reg, err := r.loadLocked()
	if err != nil {
		return err
	}

	if err := fn(reg); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}

	return r.saveLocked(reg)
}

// AddOrUpdate upserts rec. Returns true when a new block was created.
func (r *Repository) AddOrUpdate(ctx context.Context, rec Record) (bool, error) {
	var created bool
	err := r.Update(ctx, func(reg *Registry) error {
		created = reg.Upsert(rec)
		return nil
	})
	return created, err
}

// Remove drops the block for domain. An absent domain is a successful
// no-op that leaves the file untouched.
func (r *Repository) Remove(ctx context.Context, domain string) (bool, error) {
	var removed bool
	err := r.Update(ctx, func(reg *Registry) error {
		removed = reg.Remove(domain)
		if !removed {
			return ErrNoChange
		}
		return nil
	})
	return removed, err
}

// RemoveByRootPrefix drops every block whose root starts with prefix and
// returns how many were removed.
func (r *Repository) RemoveByRootPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := r.Update(ctx, func(reg *Registry) error {
		count = reg.RemoveByRootPrefix(prefix)
		if count == 0 {
			return ErrNoChange
		}
		return nil
	})
	return count, err
}

// SetSSL binds the certificate pair on the block for domain. Returns false
// without touching the file when the domain is not present.
func (r *Repository) SetSSL(ctx context.Context, domain, cert, key string) (bool, error) {
	var bound bool
	err := r.Update(ctx, func(reg *Registry) error {
		bound = reg.SetSSL(domain, cert, key)
		if !bound {
			return ErrNoChange
		}
		return nil
	})
	return bound, err
}

// acquire takes the sidecar lock, retrying until lockTimeout elapses.
func (r *Repository) acquire(ctx context.Context, shared bool) (func(), error) {
	fileLock := flock.New(r.lockPath)

	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	var locked bool
	var err error
	if shared {
		locked, err = fileLock.TryRLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryLockContext(lockCtx, lockRetryDelay)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errors.LockTimeout(r.lockPath)
		}
		return nil, errors.IO("failed to acquire registry lock", err)
	}
	if !locked {
		return nil, errors.LockTimeout(r.lockPath)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			r.log.Warning("registry: failed to release lock %s: %v", r.lockPath, err)
		}
	}, nil
}

func (r *Repository) loadLocked() (*Registry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Debug("registry: %s does not exist, starting empty", r.path)
			return Parse(nil, r.log), nil
		}
		return nil, errors.IO("failed to read registry", err)
	}

	return Parse(data, r.log), nil
}

// saveLocked backs up the current file, then replaces it atomically via a
// temp file in the same directory. Any failure leaves the original in
// place.
func (r *Repository) saveLocked(reg *Registry) error {
	if err := r.backupLocked(); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.IO("failed to create registry directory", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp.")
	if err != nil {
		return errors.IO("failed to create temp registry file", err)
	}
	tmpPath := tmp.Name()

	discard := func(err error, msg string) error {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.IO(msg, err)
	}

	if _, err := tmp.Write(reg.Serialize()); err != nil {
		return discard(err, "failed to write registry")
	}
	if err := tmp.Chmod(mode); err != nil {
		return discard(err, "failed to set registry permissions")
	}
	if err := tmp.Sync(); err != nil {
		return discard(err, "failed to sync registry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.IO("failed to close temp registry file", err)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return errors.IO("failed to replace registry", err)
	}

	return nil
}

// backupLocked copies the current registry to a timestamped sibling before
// a write. The first write of a new registry has nothing to back up.
func (r *Repository) backupLocked() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.IO("failed to read registry for backup", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(r.path); err == nil {
		mode = info.Mode().Perm()
	}

	now := time.Now()
	backupPath := fmt.Sprintf("%s.bak.%s", r.path, now.Format(backupTimeFormat))
	if _, err := os.Stat(backupPath); err == nil {
		// Second write within the same second.
		backupPath = fmt.Sprintf("%s.%09d", backupPath, now.Nanosecond())
	}

	if err := os.WriteFile(backupPath, data, mode); err != nil {
		return errors.IO("failed to write registry backup", err)
	}

	r.log.Debug("registry: backed up %s to %s", r.path, backupPath)
	r.pruneBackups()
	return nil
}

// pruneBackups drops the oldest backups beyond backupKeep. Backup names
// sort chronologically, so lexicographic order is age order.
func (r *Repository) pruneBackups() {
	if r.backupKeep <= 0 {
		return
	}

	backups, err := filepath.Glob(r.path + ".bak.*")
	if err != nil || len(backups) <= r.backupKeep {
		return
	}

	sort.Strings(backups)
	for _, old := range backups[:len(backups)-r.backupKeep] {
		if err := os.Remove(old); err != nil {
			r.log.Warning("registry: failed to prune backup %s: %v", old, err)
		}
	}
}
