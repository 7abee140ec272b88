package keg

import (
	"bytes"
	"path/filepath"

	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Placeholders written into relocatable bottles at pack time and rewritten
// to the live layout when the bottle is poured.
const (
	PrefixPlaceholder = "@@LBREW_PREFIX@@"
	CellarPlaceholder = "@@LBREW_CELLAR@@"
)

// Relocate rewrites layout placeholders in every file of the keg and
// returns how many files changed. Poured bottles reference the packing
// machine's layout until this runs.
func Relocate(fs types.FS, p paths.Paths, k Keg) (int, error) {
	changed := 0
	err := relocateDir(fs, p, k.Path, &changed)
	return changed, err
}

func relocateDir(fs types.FS, p paths.Paths, dir string, changed *int) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := relocateDir(fs, p, path, changed); err != nil {
				return err
			}
			continue
		}
		info, err := fs.Lstat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		data, err := fs.ReadFile(path)
		if err != nil {
			return err
		}
		if !bytes.Contains(data, []byte(PrefixPlaceholder)) && !bytes.Contains(data, []byte(CellarPlaceholder)) {
			continue
		}
		data = bytes.ReplaceAll(data, []byte(PrefixPlaceholder), []byte(p.Prefix()))
		data = bytes.ReplaceAll(data, []byte(CellarPlaceholder), []byte(p.Cellar()))
		if err := fs.WriteFile(path, data, info.Mode().Perm()); err != nil {
			return err
		}
		*changed++
	}
	return nil
}
