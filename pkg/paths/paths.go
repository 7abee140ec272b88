// Package paths provides centralized path handling for lbrew.
// It implements XDG Base Directory specification compliance for cache
// and log locations and provides a consistent API for the prefix,
// cellar and lock layout used by the installer.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
)

// Environment variable names
const (
	// EnvPrefix overrides the shared installation prefix
	EnvPrefix = "LBREW_PREFIX"

	// EnvCellar overrides the cellar root (defaults to <prefix>/Cellar)
	EnvCellar = "LBREW_CELLAR"

	// EnvCacheDir overrides the XDG cache directory for lbrew
	EnvCacheDir = "LBREW_CACHE_DIR"

	// EnvTapDir overrides the formula tap directory
	EnvTapDir = "LBREW_TAP_DIR"
)

// Default directories and files
// IMPORTANT: These constants define the on-disk layout shared between the
// installer and the build driver subprocess. They are not user-configurable;
// user-facing settings live in pkg/config instead.
const (
	// DefaultPrefix is used when no override is present
	DefaultPrefix = "/home/linuxbrew/.linuxbrew"

	// CellarDirName is the cellar directory under the prefix
	CellarDirName = "Cellar"

	// OptDirName holds per-formula convenience links
	OptDirName = "opt"

	// LocksDirName holds advisory lock files, under var/lbrew
	LocksDirName = "locks"

	// TmpSuffix is appended to a keg path staged aside during replacement
	TmpSuffix = ".tmp"

	// TabFileName is the install receipt written into each keg
	TabFileName = "INSTALL_RECEIPT.toml"

	// LinkedMarkerName records that a keg is linked into the prefix
	LinkedMarkerName = ".linked"
)

// linkedDirs are the keg subdirectories mirrored into the prefix.
var linkedDirs = []string{"bin", "sbin", "lib", "libexec", "include", "share", "etc", "var", "Frameworks"}

// Paths provides centralized path management for lbrew
type Paths interface {
	Prefix() string
	Cellar() string
	OptDir() string
	OptPath(formulaName string) string
	LocksDir() string
	LockPath(formulaName string) string
	TapDir() string
	FormulaPath(formulaName string) string
	CacheDir() string
	KegPath(formulaName, version string) string
	KegParent(formulaName string) string
	TabPath(formulaName, version string) string
	LinkedDirs() []string
	LogFilePath() string
}

type paths struct {
	prefix   string
	cellar   string
	tapDir   string
	xdgCache string
}

// New creates a new Paths instance rooted at the given prefix.
// If prefix is empty it is determined from LBREW_PREFIX or the default.
func New(prefix string) (Paths, error) {
	p := &paths{}

	if prefix == "" {
		prefix = os.Getenv(EnvPrefix)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	abs, err := filepath.Abs(prefix)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid prefix %q", prefix)
	}
	p.prefix = abs

	if cellar := os.Getenv(EnvCellar); cellar != "" {
		p.cellar = cellar
	} else {
		p.cellar = filepath.Join(p.prefix, CellarDirName)
	}

	if tapDir := os.Getenv(EnvTapDir); tapDir != "" {
		p.tapDir = tapDir
	} else {
		p.tapDir = filepath.Join(p.prefix, "Library", "Taps")
	}

	if cacheDir := os.Getenv(EnvCacheDir); cacheDir != "" {
		p.xdgCache = cacheDir
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, "lbrew")
	}

	return p, nil
}

func (p *paths) Prefix() string {
	return p.prefix
}

func (p *paths) Cellar() string {
	return p.cellar
}

func (p *paths) OptDir() string {
	return filepath.Join(p.prefix, OptDirName)
}

func (p *paths) OptPath(formulaName string) string {
	return filepath.Join(p.OptDir(), formulaName)
}

func (p *paths) LocksDir() string {
	return filepath.Join(p.prefix, "var", "lbrew", LocksDirName)
}

func (p *paths) LockPath(formulaName string) string {
	return filepath.Join(p.LocksDir(), formulaName+".lock")
}

func (p *paths) TapDir() string {
	return p.tapDir
}

func (p *paths) FormulaPath(formulaName string) string {
	return filepath.Join(p.tapDir, formulaName+".toml")
}

func (p *paths) CacheDir() string {
	return p.xdgCache
}

// KegPath returns the install directory for one formula version.
func (p *paths) KegPath(formulaName, version string) string {
	return filepath.Join(p.cellar, formulaName, version)
}

// KegParent returns the per-formula container directory in the cellar.
func (p *paths) KegParent(formulaName string) string {
	return filepath.Join(p.cellar, formulaName)
}

func (p *paths) TabPath(formulaName, version string) string {
	return filepath.Join(p.KegPath(formulaName, version), TabFileName)
}

// LinkedDirs returns the keg subdirectories mirrored into the prefix.
func (p *paths) LinkedDirs() []string {
	dirs := make([]string, len(linkedDirs))
	copy(dirs, linkedDirs)
	return dirs
}

func (p *paths) LogFilePath() string {
	return filepath.Join(xdg.StateHome, "lbrew", "lbrew.log")
}
