// Package resolve expands a formula's requirement tree and transitive
// dependency graph under a set of build options, producing the ordered
// install list the orchestrator works through.
package resolve

import (
	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/bottle"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/options"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/tab"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Params carry the per-run inputs of expansion.
type Params struct {
	// RootBuild is the effective option set of the root formula,
	// frozen before any pruning decision
	RootBuild options.Build

	// BuildBottle marks a bottle-building run; requirement substitutes
	// are then pulled in as dependencies
	BuildBottle bool
}

// Expander walks requirement trees and dependency graphs.
type Expander struct {
	fs       types.FS
	paths    paths.Paths
	store    formula.Store
	checker  formula.Checker
	policy   *bottle.Policy
	behavior config.Behavior
	logger   zerolog.Logger
}

// NewExpander creates an Expander.
func NewExpander(fs types.FS, p paths.Paths, store formula.Store, checker formula.Checker, policy *bottle.Policy, behavior config.Behavior) *Expander {
	return &Expander{
		fs:       fs,
		paths:    p,
		store:    store,
		checker:  checker,
		policy:   policy,
		behavior: behavior,
		logger:   logging.GetLogger("resolve"),
	}
}

// installedTab returns the receipt of the installed keg for the formula,
// or nil when it is not installed.
func (e *Expander) installedTab(f *formula.Formula) (*tab.Tab, error) {
	version := keg.InstalledVersion(e.fs, e.paths, f.Name)
	if version == "" {
		return nil, nil
	}
	return tab.ForKeg(e.fs, e.paths.TabPath(f.Name, version))
}
