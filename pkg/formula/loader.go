package formula

import (
	"os"
	"os/exec"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// tapStore reads formula descriptors from TOML files in the tap directory.
type tapStore struct {
	fs    types.FS
	paths paths.Paths

	// cache keeps one Formula value per name so identity-based
	// deduplication during expansion sees a single instance
	cache map[string]*Formula
}

// NewStore creates a Store over the tap directory.
func NewStore(fs types.FS, p paths.Paths) Store {
	return &tapStore{fs: fs, paths: p, cache: make(map[string]*Formula)}
}

func (s *tapStore) Lookup(name string) (*Formula, error) {
	if f, ok := s.cache[name]; ok {
		return f, nil
	}

	path := s.paths.FormulaPath(name)
	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrFormulaNotFound, "no formula %q in tap", name).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "reading formula %q", name)
	}

	f := &Formula{Variant: Stable}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFormulaInvalid, "parsing formula %q", name)
	}
	f.Path = path

	if err := validate(f, name); err != nil {
		return nil, err
	}

	s.cache[name] = f
	return f, nil
}

// Fetch refreshes the tap. The TOML store reads straight from disk, so a
// fetch only has to drop the cache; a remote-backed store would sync here.
func (s *tapStore) Fetch() error {
	log := logging.GetLogger("formula.store")
	log.Debug().Str("tap", s.paths.TapDir()).Msg("Refreshing tap")
	s.cache = make(map[string]*Formula)
	return nil
}

func validate(f *Formula, name string) error {
	if f.Name == "" {
		f.Name = name
	}
	if f.Name != name {
		return errors.Newf(errors.ErrFormulaInvalid,
			"formula file %q declares mismatched name %q", name, f.Name)
	}
	if f.Version == "" {
		return errors.Newf(errors.ErrFormulaInvalid, "formula %q has no version", name)
	}
	switch f.Variant {
	case Stable, Development, Head:
	default:
		return errors.Newf(errors.ErrFormulaInvalid,
			"formula %q has unknown variant %q", name, f.Variant)
	}
	for _, d := range f.Dependencies {
		switch d.Tag {
		case TagRequired, TagRecommended, TagOptional, TagBuild:
		default:
			return errors.Newf(errors.ErrFormulaInvalid,
				"formula %q dependency %q has unknown tag %q", name, d.Name, d.Tag)
		}
	}
	return nil
}

// pathChecker satisfies requirements by looking the tool up on PATH.
type pathChecker struct{}

// NewPathChecker returns the default requirement Checker.
func NewPathChecker() Checker {
	return pathChecker{}
}

func (pathChecker) Satisfied(r Requirement) bool {
	_, err := exec.LookPath(r.Name)
	return err == nil
}
