// Package keg models one installed formula version directory in the cellar
// and its integration into the shared prefix via symlinks.
package keg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Keg is the on-disk directory tree of one installed formula version.
type Keg struct {
	Name    string
	Version string
	Path    string
}

// New returns the keg for one formula version under the cellar.
func New(p paths.Paths, name, version string) Keg {
	return Keg{
		Name:    name,
		Version: version,
		Path:    p.KegPath(name, version),
	}
}

// Exists reports whether the keg directory is present
func (k Keg) Exists(fs types.FS) bool {
	info, err := fs.Stat(k.Path)
	return err == nil && info.IsDir()
}

// Empty reports whether the keg directory holds no entries
func (k Keg) Empty(fs types.FS) (bool, error) {
	entries, err := fs.ReadDir(k.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

// Remove deletes the keg directory, and its parent container in the cellar
// when that becomes empty.
func (k Keg) Remove(fs types.FS) error {
	if err := fs.RemoveAll(k.Path); err != nil {
		return errors.Wrapf(err, errors.ErrKegRemove, "removing keg %s", k.Path)
	}
	parent := filepath.Dir(k.Path)
	entries, err := fs.ReadDir(parent)
	if err == nil && len(entries) == 0 {
		if err := fs.Remove(parent); err != nil {
			return errors.Wrapf(err, errors.ErrKegRemove, "removing empty container %s", parent)
		}
	}
	return nil
}

// InstalledVersion returns the version directory present for a formula in
// the cellar, or "" when none is installed. Multiple versions yield the
// lexically last one. Kegs staged aside during a replacement carry the
// temporary suffix and do not count as installed.
func InstalledVersion(fs types.FS, p paths.Paths, name string) string {
	entries, err := fs.ReadDir(p.KegParent(name))
	if err != nil {
		return ""
	}
	version := ""
	for _, e := range entries {
		if !e.IsDir() || strings.HasSuffix(e.Name(), paths.TmpSuffix) {
			continue
		}
		if e.Name() > version {
			version = e.Name()
		}
	}
	return version
}
