package testutil

import (
	"io/fs"
	"path/filepath"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// StubChecker satisfies exactly the named requirements.
type StubChecker struct {
	Satisfiable map[string]bool
}

func (c StubChecker) Satisfied(r formula.Requirement) bool {
	return c.Satisfiable[r.Name]
}

// StubFetcher stages a fixed file tree (keg-relative path to content) as
// the bottle of any formula, manifest included. With no Files configured it
// stages bin/<formula name>, so multiple formulae can link side by side.
type StubFetcher struct {
	FS     types.FS
	Cellar string
	Files  map[string]string

	// Staged records the formulae staged, in order.
	Staged []string
}

func (f *StubFetcher) Stage(fm *formula.Formula, destDir string) error {
	f.Staged = append(f.Staged, fm.Name)

	manifest := "formula: " + fm.Name + "\nversion: " + fm.Version + "\ncellar: " + f.Cellar + "\n"
	all := map[string]string{".bottle/manifest.yaml": manifest}
	if f.Files == nil {
		all["bin/"+fm.Name] = "#!/bin/sh\n"
	}
	for rel, content := range f.Files {
		all[rel] = content
	}
	for rel, content := range all {
		path := filepath.Join(destDir, rel)
		if err := f.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		mode := fs.FileMode(0644)
		if filepath.Dir(rel) == "bin" {
			mode = 0755
		}
		if err := f.FS.WriteFile(path, []byte(content), mode); err != nil {
			return err
		}
	}
	return nil
}

// FailingFetcher fails every stage, forcing the source-build fallback.
type FailingFetcher struct {
	Staged []string
}

func (f *FailingFetcher) Stage(fm *formula.Formula, destDir string) error {
	f.Staged = append(f.Staged, fm.Name)
	return errors.Newf(errors.ErrBottleStage, "no bottle artifact for %s", fm.Name)
}
