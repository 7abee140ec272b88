package testutil

import (
	"io/fs"
	"path/filepath"

	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/tab"
)

// WriteFormula places a formula descriptor in the tap.
func (env *TestEnvironment) WriteFormula(name, content string) string {
	env.t.Helper()

	path := env.Paths.FormulaPath(name)
	if err := env.FS.WriteFile(path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write formula %s: %v", name, err)
	}
	return path
}

// InstallKeg creates a keg with the given files (keg-relative path to
// content) and an install receipt recording the given options.
func (env *TestEnvironment) InstallKeg(name, version string, files map[string]string, usedOptions ...string) keg.Keg {
	env.t.Helper()

	k := keg.New(env.Paths, name, version)
	if err := env.FS.MkdirAll(k.Path, 0755); err != nil {
		env.t.Fatalf("Failed to create keg %s: %v", k.Path, err)
	}
	for rel, content := range files {
		path := filepath.Join(k.Path, rel)
		if err := env.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
			env.t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		mode := fs.FileMode(0644)
		if filepath.Dir(rel) == "bin" || filepath.Dir(rel) == "sbin" {
			mode = 0755
		}
		if err := env.FS.WriteFile(path, []byte(content), mode); err != nil {
			env.t.Fatalf("Failed to write %s: %v", path, err)
		}
	}

	t := &tab.Tab{UsedOptions: usedOptions, PouredFromBottle: false}
	if err := t.Write(env.FS, env.Paths.TabPath(name, version)); err != nil {
		env.t.Fatalf("Failed to write receipt for %s: %v", name, err)
	}
	return k
}

// StageBottle populates the local cache with an unpacked bottle tree and
// its manifest, ready for the cache fetcher to stage.
func (env *TestEnvironment) StageBottle(name, version, cellar string, files map[string]string) {
	env.t.Helper()

	root := filepath.Join(env.Cache, "bottles", name+"-"+version)
	manifest := "formula: " + name + "\nversion: " + version + "\ncellar: " + cellar + "\n"
	all := map[string]string{".bottle/manifest.yaml": manifest}
	for rel, content := range files {
		all[rel] = content
	}
	for rel, content := range all {
		path := filepath.Join(root, rel)
		if err := env.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
			env.t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := env.FS.WriteFile(path, []byte(content), 0644); err != nil {
			env.t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}
