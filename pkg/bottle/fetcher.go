package bottle

import (
	"fmt"
	"path/filepath"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// cacheFetcher stages bottles from the local download cache. Fetching the
// artifact over the network and verifying its checksum happen upstream of
// the installer; this collaborator only copies an already-verified tree.
type cacheFetcher struct {
	fs    types.FS
	paths paths.Paths
}

// NewCacheFetcher returns a Fetcher reading unpacked bottle trees from
// <cache>/bottles/<name>-<version>/.
func NewCacheFetcher(fs types.FS, p paths.Paths) Fetcher {
	return &cacheFetcher{fs: fs, paths: p}
}

func (c *cacheFetcher) Stage(f *formula.Formula, destDir string) error {
	source := filepath.Join(c.paths.CacheDir(), "bottles", fmt.Sprintf("%s-%s", f.Name, f.Version))
	if _, err := c.fs.Stat(source); err != nil {
		return errors.Wrapf(err, errors.ErrBottleStage,
			"no cached bottle for %s %s", f.Name, f.Version)
	}
	return c.copyTree(source, destDir)
}

func (c *cacheFetcher) copyTree(from, to string) error {
	entries, err := c.fs.ReadDir(from)
	if err != nil {
		return err
	}
	for _, e := range entries {
		source := filepath.Join(from, e.Name())
		target := filepath.Join(to, e.Name())
		if e.IsDir() {
			if err := c.fs.MkdirAll(target, 0755); err != nil {
				return err
			}
			if err := c.copyTree(source, target); err != nil {
				return err
			}
			continue
		}
		data, err := c.fs.ReadFile(source)
		if err != nil {
			return err
		}
		info, err := c.fs.Stat(source)
		if err != nil {
			return err
		}
		if err := c.fs.WriteFile(target, data, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}
