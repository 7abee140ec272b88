// Package formula holds the package descriptor model consumed by the
// installer. Descriptor parsing is deliberately thin: a formula is a TOML
// file in the tap directory naming its dependencies, requirements, options
// and bottle, plus a package-supplied build script the installer only ever
// delegates to.
package formula

import (
	"github.com/winordie-47/linuxbrew1/pkg/options"
)

// SpecVariant selects which source spec of a formula is installed.
type SpecVariant string

const (
	Stable      SpecVariant = "stable"
	Development SpecVariant = "devel"
	Head        SpecVariant = "head"
)

// DepTag classifies a dependency edge.
type DepTag string

const (
	TagRequired    DepTag = "required"
	TagRecommended DepTag = "recommended"
	TagOptional    DepTag = "optional"
	TagBuild       DepTag = "build"
)

// Dependency is an edge to an installable formula.
type Dependency struct {
	Name    string   `toml:"name"`
	Tag     DepTag   `toml:"tag"`
	Options []string `toml:"options"`
}

// Optional reports whether the edge is optional
func (d Dependency) Optional() bool { return d.Tag == TagOptional }

// Recommended reports whether the edge is recommended
func (d Dependency) Recommended() bool { return d.Tag == TagRecommended }

// BuildOnly reports whether the edge is needed at build time only
func (d Dependency) BuildOnly() bool { return d.Tag == TagBuild }

// RequestedOptions returns the option set the dependent asks for
func (d Dependency) RequestedOptions() *options.Set {
	return options.FromNames(d.Options...)
}

// Requirement is a non-installable precondition: an external tool or OS
// feature the build or runtime needs. Whether it is satisfied is decided by
// a Checker collaborator, not by this package.
type Requirement struct {
	Name  string `toml:"name"`
	Tag   DepTag `toml:"tag"`
	Fatal bool   `toml:"fatal"`
	Build bool   `toml:"build"`

	// DefaultFormula names an installable substitute, if any
	DefaultFormula string `toml:"default_formula"`

	// UseDefault makes the substitute unconditionally wanted, not only
	// when a bottle is in play
	UseDefault bool `toml:"use_default"`
}

// Optional reports whether the requirement is optional
func (r Requirement) Optional() bool { return r.Tag == TagOptional }

// Recommended reports whether the requirement is recommended
func (r Requirement) Recommended() bool { return r.Tag == TagRecommended }

// Bottle describes the precompiled artifact of a formula.
type Bottle struct {
	// Cellar is "any" for a relocatable bottle, or the exact cellar path
	// the bottle was built for. Empty means no bottle exists.
	Cellar string `toml:"cellar"`

	// Platforms lists the platform tags the bottle is built for
	Platforms []string `toml:"platforms"`

	RootURL string `toml:"root_url"`
	SHA256  string `toml:"sha256"`
}

// CellarAny is the Bottle.Cellar value of a relocatable bottle.
const CellarAny = "any"

// ForPlatform reports whether the bottle is built for the given platform tag
func (b *Bottle) ForPlatform(platform string) bool {
	if b == nil {
		return false
	}
	for _, p := range b.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// CompatibleCellar reports whether the bottle can be poured into the cellar
// at the given path.
func (b *Bottle) CompatibleCellar(cellar string) bool {
	if b == nil {
		return false
	}
	return b.Cellar == CellarAny || b.Cellar == cellar
}

// Formula is one package descriptor. It is immutable for the duration of an
// install run; accumulated install state lives in the installer session.
type Formula struct {
	Name    string      `toml:"name"`
	Version string      `toml:"version"`
	Variant SpecVariant `toml:"variant"`

	Options      []options.Option `toml:"option"`
	Dependencies []Dependency     `toml:"dependency"`
	Requirements []Requirement    `toml:"requirement"`

	Bottle *Bottle `toml:"bottle"`

	KegOnly     bool     `toml:"keg_only"`
	PostInstall bool     `toml:"post_install"`
	Conflicts   []string `toml:"conflicts"`

	// BuildScript is the package-supplied build procedure, relative to the
	// tap directory. The installer never interprets it.
	BuildScript string `toml:"build_script"`

	// BottleDisabled is the formula's own "bottle allowed" predicate
	BottleDisabled bool `toml:"bottle_disabled"`

	// Path is where the descriptor was loaded from
	Path string `toml:"-"`
}

// DeclaredOptions returns the formula's declared option set
func (f *Formula) DeclaredOptions() *options.Set {
	return options.NewSet(f.Options...)
}

// SupportsUniversal reports whether the formula declares the universal option
func (f *Formula) SupportsUniversal() bool {
	return f.DeclaredOptions().Include(options.UniversalOption)
}

// HasBottle reports whether any bottle artifact is declared
func (f *Formula) HasBottle() bool {
	return f.Bottle != nil && f.Bottle.Cellar != ""
}

// Checker decides whether a requirement is satisfied on this machine.
// Capability detection is an external collaborator.
type Checker interface {
	Satisfied(r Requirement) bool
}

// Store finds formula descriptors by name.
type Store interface {
	// Lookup returns the descriptor for name, or an error carrying
	// errors.ErrFormulaNotFound when the tap has no such formula.
	Lookup(name string) (*Formula, error)

	// Fetch refreshes the tap contents. The orchestrator calls it once
	// before retrying a failed lookup.
	Fetch() error
}
