package keg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Linker integrates kegs into the shared prefix.
type Linker struct {
	fs     types.FS
	paths  paths.Paths
	logger zerolog.Logger
}

// NewLinker creates a Linker over the given filesystem and layout.
func NewLinker(fs types.FS, p paths.Paths) *Linker {
	return &Linker{
		fs:     fs,
		paths:  p,
		logger: logging.GetLogger("keg.linker"),
	}
}

// Linked reports whether the keg carries the linked marker.
func (l *Linker) Linked(k Keg) bool {
	_, err := l.fs.Stat(filepath.Join(k.Path, paths.LinkedMarkerName))
	return err == nil
}

// Link mirrors the keg's bin/lib/share/... trees into the prefix.
//
// The destructive pass only runs after a dry-run pass over the same tree
// found no conflicts, so a conflicting prefix is reported in full and the
// keg stays intact, installed but unlinked.
func (l *Linker) Link(k Keg) (int, error) {
	// A stale marker without actual links is cleared and linking proceeds.
	if l.Linked(k) {
		n, err := l.countLinks(k)
		if err == nil && n > 0 {
			l.logger.Debug().Str("keg", k.Path).Msg("Keg already linked")
			return 0, nil
		}
		if err := l.fs.Remove(filepath.Join(k.Path, paths.LinkedMarkerName)); err != nil {
			l.logger.Warn().Err(err).Str("keg", k.Path).Msg("Failed to clear stale linked marker")
		}
	}

	conflicts, err := l.findConflicts(k)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrLinkFailed, "scanning keg %s", k.Path)
	}
	if len(conflicts) > 0 {
		return 0, errors.Newf(errors.ErrLinkConflict,
			"cannot link %s: %d target path(s) already occupied", k.Name, len(conflicts)).
			WithDetail("conflicts", conflicts)
	}

	linked := 0
	err = l.walk(k, func(source, target string) error {
		if err := l.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if _, err := l.fs.Lstat(target); err == nil {
			// Owned by this keg per the conflict scan; replace the link.
			if err := l.fs.Remove(target); err != nil {
				return err
			}
		}
		if err := l.fs.Symlink(source, target); err != nil {
			return err
		}
		linked++
		return nil
	})
	if err != nil {
		return linked, errors.Wrapf(err, errors.ErrLinkFailed, "linking %s", k.Name)
	}

	if err := l.fs.WriteFile(filepath.Join(k.Path, paths.LinkedMarkerName), nil, 0644); err != nil {
		l.logger.Warn().Err(err).Str("keg", k.Path).Msg("Failed to write linked marker")
	}

	l.logger.Info().Str("keg", k.Path).Int("links", linked).Msg("Keg linked")
	return linked, nil
}

// Unlink removes every prefix symlink pointing into the keg.
func (l *Linker) Unlink(k Keg) (int, error) {
	removed := 0
	err := l.walk(k, func(source, target string) error {
		dest, err := l.fs.Readlink(target)
		if err != nil {
			return nil // not a symlink or already gone
		}
		if dest != source && !strings.HasPrefix(dest, k.Path+string(filepath.Separator)) {
			return nil // owned by someone else
		}
		if err := l.fs.Remove(target); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, errors.Wrapf(err, errors.ErrLinkFailed, "unlinking %s", k.Name)
	}
	if err := l.fs.Remove(filepath.Join(k.Path, paths.LinkedMarkerName)); err != nil && !os.IsNotExist(err) {
		l.logger.Warn().Err(err).Str("keg", k.Path).Msg("Failed to remove linked marker")
	}
	l.logger.Info().Str("keg", k.Path).Int("links", removed).Msg("Keg unlinked")
	return removed, nil
}

// OptLink points <prefix>/opt/<name> at the keg, replacing any previous
// link. Keg-only formulae get nothing but this.
func (l *Linker) OptLink(k Keg) error {
	optPath := l.paths.OptPath(k.Name)
	if err := l.fs.MkdirAll(l.paths.OptDir(), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrOptLink, "creating opt dir for %s", k.Name)
	}
	if _, err := l.fs.Lstat(optPath); err == nil {
		if err := l.fs.Remove(optPath); err != nil {
			return errors.Wrapf(err, errors.ErrOptLink, "replacing opt link for %s", k.Name)
		}
	}
	if err := l.fs.Symlink(k.Path, optPath); err != nil {
		return errors.Wrapf(err, errors.ErrOptLink, "creating opt link for %s", k.Name)
	}
	return nil
}

// findConflicts enumerates target paths occupied by files this keg does
// not own. This is the dry-run pass of Link.
func (l *Linker) findConflicts(k Keg) ([]string, error) {
	var conflicts []string
	err := l.walk(k, func(source, target string) error {
		if _, err := l.fs.Lstat(target); err != nil {
			return nil // free
		}
		dest, err := l.fs.Readlink(target)
		if err == nil && (dest == source || strings.HasPrefix(dest, k.Path+string(filepath.Separator))) {
			return nil // our own link from a previous run
		}
		conflicts = append(conflicts, target)
		return nil
	})
	return conflicts, err
}

func (l *Linker) countLinks(k Keg) (int, error) {
	count := 0
	err := l.walk(k, func(source, target string) error {
		dest, err := l.fs.Readlink(target)
		if err == nil && dest == source {
			count++
		}
		return nil
	})
	return count, err
}

// walk visits every file under the keg's linked directories, calling fn
// with the keg source path and the mirrored prefix target path.
func (l *Linker) walk(k Keg, fn func(source, target string) error) error {
	for _, dir := range l.paths.LinkedDirs() {
		root := filepath.Join(k.Path, dir)
		if _, err := l.fs.Stat(root); err != nil {
			continue
		}
		if err := l.walkDir(k, root, fn); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) walkDir(k Keg, dir string, fn func(source, target string) error) error {
	entries, err := l.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		source := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := l.walkDir(k, source, fn); err != nil {
				return err
			}
			continue
		}
		rel, err := filepath.Rel(k.Path, source)
		if err != nil {
			return err
		}
		target := filepath.Join(l.paths.Prefix(), rel)
		if err := fn(source, target); err != nil {
			return err
		}
	}
	return nil
}
