// Package lock provides cross-process advisory locking over a formula and
// its dependency closure for the lifetime of one installer run.
package lock

import (
	"os"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// fileLock is one flock(2)-held lock file.
type fileLock struct {
	name string
	file *os.File
}

// Registry is the process-wide set of held locks, keyed by formula name.
// Populated by the outermost orchestration, read by nested ones, cleared on
// release. Not safe for concurrent top-level runs in one process; that case
// is excluded by design and cross-process safety is flock's job.
type Registry struct {
	paths  paths.Paths
	held   []*fileLock
	logger zerolog.Logger
}

// NewRegistry creates an empty lock registry.
func NewRegistry(p paths.Paths) *Registry {
	return &Registry{
		paths:  p,
		logger: logging.GetLogger("lock"),
	}
}

// Held reports whether this registry currently holds any locks.
func (r *Registry) Held() bool {
	return len(r.held) > 0
}

// Hold is the result of an Acquire. Only the outermost acquisition is the
// holder; nested acquisitions release nothing.
type Hold struct {
	registry *Registry
	holder   bool
}

// Holder reports whether this hold owns the registry's locks.
func (h *Hold) Holder() bool {
	return h.holder
}

// Acquire locks the root formula plus the given dependency names, root
// first then the rest in sorted order, so concurrent installer processes
// contending on overlapping closures cannot deadlock on partial lock sets.
//
// Idempotent: when the registry is already populated an enclosing
// orchestration holds the locks, and the returned Hold is a non-holder.
func (r *Registry) Acquire(root string, depNames []string) (*Hold, error) {
	if r.Held() {
		r.logger.Debug().Str("formula", root).Msg("Locks already held by enclosing run")
		return &Hold{registry: r, holder: false}, nil
	}

	if err := os.MkdirAll(r.paths.LocksDir(), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrLockAcquire, "creating locks directory")
	}

	seen := map[string]bool{root: true}
	ordered := []string{root}
	rest := make([]string, 0, len(depNames))
	for _, name := range depNames {
		if !seen[name] {
			seen[name] = true
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	for _, name := range ordered {
		if err := r.lockOne(name); err != nil {
			r.release()
			return nil, err
		}
	}

	r.logger.Debug().Str("formula", root).Int("locks", len(r.held)).Msg("Lock set acquired")
	return &Hold{registry: r, holder: true}, nil
}

// Release frees the lock set if this hold owns it. Safe to call on every
// exit path; non-holders and double releases are no-ops.
func (h *Hold) Release() {
	if h == nil || !h.holder {
		return
	}
	h.holder = false
	h.registry.release()
}

func (r *Registry) lockOne(name string) error {
	path := r.paths.LockPath(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrLockAcquire, "opening lock file for %q", name)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return errors.Newf(errors.ErrLockHeld,
				"formula %q is locked by another installer process", name)
		}
		return errors.Wrapf(err, errors.ErrLockAcquire, "locking %q", name)
	}
	r.held = append(r.held, &fileLock{name: name, file: f})
	return nil
}

func (r *Registry) release() {
	for i := len(r.held) - 1; i >= 0; i-- {
		l := r.held[i]
		if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
			r.logger.Warn().Err(err).Str("formula", l.name).Msg("Failed to unlock")
		}
		if err := l.file.Close(); err != nil {
			r.logger.Warn().Err(err).Str("formula", l.name).Msg("Failed to close lock file")
		}
	}
	r.held = nil
	r.logger.Debug().Msg("Lock set released")
}
