package testutil

import (
	"path/filepath"
	"testing"

	"github.com/winordie-47/linuxbrew1/pkg/filesystem"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// EnvType selects the backing filesystem of a test environment.
type EnvType int

const (
	// EnvMemory uses a pure in-memory filesystem. Symlinks are simulated,
	// so tests exercising real flock or rename semantics need EnvIsolated.
	EnvMemory EnvType = iota

	// EnvIsolated uses the real filesystem under t.TempDir().
	EnvIsolated
)

// TestEnvironment bundles a filesystem and a prefix layout for installer
// tests.
type TestEnvironment struct {
	FS    types.FS
	Paths paths.Paths

	Prefix string
	TapDir string
	Cache  string

	t *testing.T
}

// NewTestEnvironment creates a test environment with the standard layout
// (Cellar, opt, tap, cache, lock dir) already present.
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{t: t}

	switch envType {
	case EnvMemory:
		env.Prefix = "/virtual/lbrew"
		env.FS = filesystem.NewMemory()
	case EnvIsolated:
		env.Prefix = filepath.Join(t.TempDir(), "lbrew")
		env.FS = filesystem.NewOS()
	}
	env.TapDir = filepath.Join(env.Prefix, "Library", "Taps")
	env.Cache = filepath.Join(env.Prefix, "cache")

	t.Setenv(paths.EnvPrefix, env.Prefix)
	t.Setenv(paths.EnvCellar, "")
	t.Setenv(paths.EnvTapDir, env.TapDir)
	t.Setenv(paths.EnvCacheDir, env.Cache)

	p, err := paths.New(env.Prefix)
	if err != nil {
		t.Fatalf("Failed to create paths: %v", err)
	}
	env.Paths = p

	for _, dir := range []string{
		p.Cellar(),
		p.OptDir(),
		p.LocksDir(),
		env.TapDir,
		env.Cache,
	} {
		if err := env.FS.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	return env
}
