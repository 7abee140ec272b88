// Package bottle decides when a precompiled artifact may stand in for a
// source build, and stages bottles into the cellar.
package bottle

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/options"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// Flags are the invocation switches the policy consults.
type Flags struct {
	ForceBottle     bool
	BuildFromSource bool
	BuildBottle     bool
	Interactive     bool

	// ExplicitOptions is true when the user requested any build option.
	// Bottles encode a single fixed option set, so any request forces a
	// source build.
	ExplicitOptions bool
}

// Policy evaluates the bottle-vs-source decision. One Policy lives for one
// installer run; failed pours are remembered so the formula is never poured
// again within the run.
type Policy struct {
	paths    paths.Paths
	platform string
	flags    Flags
	cfg      config.Bottle
	failed   map[string]bool
	logger   zerolog.Logger
}

// NewPolicy creates a Policy for the current platform.
func NewPolicy(p paths.Paths, flags Flags, cfg config.Bottle) *Policy {
	return &Policy{
		paths:    p,
		platform: CurrentPlatform(),
		flags:    flags,
		cfg:      cfg,
		failed:   make(map[string]bool),
		logger:   logging.GetLogger("bottle.policy"),
	}
}

// CurrentPlatform returns the bottle platform tag for this machine.
func CurrentPlatform() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	return fmt.Sprintf("%s_%s", arch, runtime.GOOS)
}

// MarkPourFailed records a failed pour; UsesBottle returns false for the
// formula for the rest of the run.
func (p *Policy) MarkPourFailed(name string) {
	p.failed[name] = true
}

// PourFailed reports whether a pour already failed for the formula.
func (p *Policy) PourFailed(name string) bool {
	return p.failed[name]
}

// UsesBottle reports whether the formula will be installed from its bottle
// rather than built from source.
func (p *Policy) UsesBottle(f *formula.Formula) bool {
	if p.failed[f.Name] {
		return false
	}
	if p.flags.ForceBottle && f.HasBottle() {
		return true
	}
	if p.flags.BuildFromSource || p.flags.BuildBottle || p.flags.Interactive {
		return false
	}
	if p.flags.ExplicitOptions {
		return false
	}
	for _, name := range p.cfg.BlockedFormulae {
		if name == f.Name {
			return false
		}
	}
	for _, name := range p.cfg.ForcedFormulae {
		if name == f.Name && f.HasBottle() {
			return true
		}
	}
	if !f.HasBottle() || f.BottleDisabled {
		return false
	}
	if !f.Bottle.ForPlatform(p.platform) {
		return false
	}
	if !f.Bottle.CompatibleCellar(p.paths.Cellar()) {
		// Degrades to a source build, not an error.
		p.logger.Warn().
			Str("formula", f.Name).
			Str("bottleCellar", f.Bottle.Cellar).
			Str("cellar", p.paths.Cellar()).
			Msg("Bottle built for a different cellar, building from source")
		return false
	}
	return true
}

// DependencyUsesBottle reports whether a dependency may be poured rather
// than built: the run is not forced to source, the dependency has a
// compatible bottle, and the dependent carries no custom build options.
func (p *Policy) DependencyUsesBottle(dep *formula.Formula, dependentUsed *options.Set) bool {
	if p.flags.BuildFromSource {
		return false
	}
	if !dep.HasBottle() || dep.BottleDisabled {
		return false
	}
	if !dep.Bottle.ForPlatform(p.platform) || !dep.Bottle.CompatibleCellar(p.paths.Cellar()) {
		return false
	}
	return dependentUsed.Empty()
}
