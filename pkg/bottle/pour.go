package bottle

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Fetcher downloads and unpacks a bottle into a destination directory.
// Download and checksum verification live behind this interface.
type Fetcher interface {
	Stage(f *formula.Formula, destDir string) error
}

// manifestName is written by bottle packing inside the staged keg.
const manifestName = ".bottle/manifest.yaml"

// manifest describes the staged bottle tree.
type manifest struct {
	Formula  string `yaml:"formula"`
	Version  string `yaml:"version"`
	Platform string `yaml:"platform"`
	Cellar   string `yaml:"cellar"`
}

// Pourer stages bottles into the cellar.
type Pourer struct {
	fs      types.FS
	paths   paths.Paths
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewPourer creates a Pourer using the given fetcher.
func NewPourer(fs types.FS, p paths.Paths, fetcher Fetcher) *Pourer {
	return &Pourer{
		fs:      fs,
		paths:   p,
		fetcher: fetcher,
		logger:  logging.GetLogger("bottle.pour"),
	}
}

// Pour stages the formula's bottle as its keg and copies any etc/var
// payload into the live prefix. Any error leaves no keg behind; the caller
// decides whether to fall back to a source build.
func (p *Pourer) Pour(f *formula.Formula) (keg.Keg, error) {
	k := keg.New(p.paths, f.Name, f.Version)

	if err := p.fs.MkdirAll(k.Path, 0755); err != nil {
		return k, errors.Wrapf(err, errors.ErrBottleStage, "creating keg for %s", f.Name)
	}

	if err := p.fetcher.Stage(f, k.Path); err != nil {
		p.rollback(k)
		return k, errors.Wrapf(err, errors.ErrBottleStage, "staging bottle for %s", f.Name)
	}

	if err := p.verify(f, k); err != nil {
		p.rollback(k)
		return k, err
	}

	if err := p.copyBackOverlay(k); err != nil {
		p.rollback(k)
		return k, errors.Wrapf(err, errors.ErrBottleStage, "installing etc/var payload for %s", f.Name)
	}

	p.logger.Info().Str("formula", f.Name).Str("keg", k.Path).Msg("Bottle poured")
	return k, nil
}

func (p *Pourer) rollback(k keg.Keg) {
	if err := k.Remove(p.fs); err != nil {
		p.logger.Warn().Err(err).Str("keg", k.Path).Msg("Failed to remove keg after pour failure")
	}
}

func (p *Pourer) verify(f *formula.Formula, k keg.Keg) error {
	data, err := p.fs.ReadFile(filepath.Join(k.Path, manifestName))
	if err != nil {
		return errors.Wrapf(err, errors.ErrBottleManifest, "reading bottle manifest for %s", f.Name)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return errors.Wrapf(err, errors.ErrBottleManifest, "parsing bottle manifest for %s", f.Name)
	}
	if m.Formula != f.Name || m.Version != f.Version {
		return errors.Newf(errors.ErrBottleManifest,
			"bottle manifest names %s %s, expected %s %s", m.Formula, m.Version, f.Name, f.Version)
	}
	if m.Cellar != formula.CellarAny && m.Cellar != p.paths.Cellar() {
		return errors.Newf(errors.ErrBottleIncompatible,
			"bottle for %s was built for cellar %s", f.Name, m.Cellar)
	}
	return nil
}

// copyBackOverlay copies files the bottle tree introduced under etc/ and
// var/ into the live prefix. These are mutable state and must be real
// copies, not links back into the keg; existing prefix files win.
func (p *Pourer) copyBackOverlay(k keg.Keg) error {
	for _, dir := range []string{"etc", "var"} {
		root := filepath.Join(k.Path, dir)
		if _, err := p.fs.Stat(root); err != nil {
			continue
		}
		if err := p.copyTree(k, root); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pourer) copyTree(k keg.Keg, dir string) error {
	entries, err := p.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		source := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := p.copyTree(k, source); err != nil {
				return err
			}
			continue
		}
		rel, err := filepath.Rel(k.Path, source)
		if err != nil {
			return err
		}
		target := filepath.Join(p.paths.Prefix(), rel)
		if _, err := p.fs.Lstat(target); err == nil {
			continue // live configuration wins over the bottle's copy
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := p.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		data, err := p.fs.ReadFile(source)
		if err != nil {
			return err
		}
		info, err := p.fs.Stat(source)
		if err != nil {
			return err
		}
		if err := p.fs.WriteFile(target, data, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}
