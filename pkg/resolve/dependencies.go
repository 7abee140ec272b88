package resolve

import (
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/options"
)

// ResolvedDependency pairs one dependency with the effective option set it
// inherits for this run.
type ResolvedDependency struct {
	Formula *formula.Formula
	Edge    formula.Dependency
	Options *options.Set
}

// ExpandDependencies produces the deduplicated, dependency-first install
// list for root: requirement-synthesized dependencies first, then the
// declared edges, each subtree expanded under the dependent's effective
// options. A formula appears at most once; the first-resolved option set
// wins.
func (e *Expander) ExpandDependencies(root *formula.Formula, synthesized []formula.Dependency, params Params) ([]ResolvedDependency, error) {
	x := &depExpansion{
		e:        e,
		params:   params,
		resolved: make(map[string]bool),
		visiting: map[string]bool{root.Name: true},
	}

	edges := append(append([]formula.Dependency{}, synthesized...), root.Dependencies...)
	if err := x.expand(root, params.RootBuild, true, edges); err != nil {
		return nil, err
	}
	return x.result, nil
}

type depExpansion struct {
	e      *Expander
	params Params

	result   []ResolvedDependency
	resolved map[string]bool
	visiting map[string]bool
}

func (x *depExpansion) expand(dependent *formula.Formula, dependentBuild options.Build, isRoot bool, edges []formula.Dependency) error {
	for _, edge := range edges {
		if x.resolved[edge.Name] {
			continue
		}
		if x.visiting[edge.Name] {
			return errors.Newf(errors.ErrCyclicDependency,
				"dependency cycle through %q and %q", dependent.Name, edge.Name)
		}

		dep, err := x.e.store.Lookup(edge.Name)
		if err != nil {
			return err
		}

		// The effective option set is frozen before the pruning
		// decision that consumes it.
		depBuild, err := x.effectiveOptions(dep, edge)
		if err != nil {
			return err
		}

		action, err := x.prune(dependent, dependentBuild, isRoot, edge, dep, depBuild)
		if err != nil {
			return err
		}

		switch action {
		case Prune:
			x.e.logger.Trace().
				Str("dependent", dependent.Name).
				Str("dependency", edge.Name).
				Msg("Dependency pruned")

		case Skip:
			// Already installed with satisfying options: blocked from
			// re-installation, but its own subtree may still need
			// validation.
			x.resolved[edge.Name] = true
			if x.e.behavior.ExpandInstalledSubtrees {
				x.visiting[edge.Name] = true
				err := x.expand(dep, depBuild, false, dep.Dependencies)
				delete(x.visiting, edge.Name)
				if err != nil {
					return err
				}
			}
			x.e.logger.Debug().
				Str("dependency", edge.Name).
				Msg("Dependency already installed, skipping")

		case Continue:
			x.visiting[edge.Name] = true
			err := x.expand(dep, depBuild, false, dep.Dependencies)
			delete(x.visiting, edge.Name)
			if err != nil {
				return err
			}
			x.resolved[edge.Name] = true
			x.result = append(x.result, ResolvedDependency{
				Formula: dep,
				Edge:    edge,
				Options: depBuild.Used(),
			})
		}
	}
	return nil
}

// effectiveOptions computes the frozen option set a dependency inherits:
// the edge's explicit request, options recorded by a prior install, and the
// universal option when the root carries it and the formula supports it.
func (x *depExpansion) effectiveOptions(dep *formula.Formula, edge formula.Dependency) (options.Build, error) {
	var recorded *options.Set
	t, err := x.e.installedTab(dep)
	if err != nil {
		return options.Build{}, err
	}
	if t != nil {
		recorded = t.Options()
	}

	var inherited *options.Set
	// Universal propagation is computed independently of the general
	// inheritance rule: every non-build dependency that supports it gets
	// it when the root has it.
	if x.params.RootBuild.Universal() && !edge.BuildOnly() && dep.SupportsUniversal() {
		inherited = options.FromNames(options.UniversalOption)
	}

	return options.NewBuild(edge.RequestedOptions(), recorded, inherited), nil
}

// prune applies the edge pruning rules under the dependent's effective
// options.
func (x *depExpansion) prune(dependent *formula.Formula, dependentBuild options.Build, isRoot bool, edge formula.Dependency, dep *formula.Formula, depBuild options.Build) (Action, error) {
	if edge.Optional() && !dependentBuild.With(edge.Name) {
		return Prune, nil
	}
	if edge.Recommended() && dependentBuild.Without(edge.Name) {
		return Prune, nil
	}
	if edge.BuildOnly() {
		if isRoot && x.e.policy.UsesBottle(dependent) {
			return Prune, nil
		}
		if !isRoot && x.e.policy.DependencyUsesBottle(dependent, dependentBuild.Used()) {
			return Prune, nil
		}
	}

	installed, err := x.installedSatisfies(dep, depBuild)
	if err != nil {
		return Continue, err
	}
	if installed {
		return Skip, nil
	}
	return Continue, nil
}

// installedSatisfies reports whether an installed keg of dep exists whose
// recorded options cover the effective request.
func (x *depExpansion) installedSatisfies(dep *formula.Formula, depBuild options.Build) (bool, error) {
	t, err := x.e.installedTab(dep)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	missing := depBuild.Used().Difference(t.Options())
	return missing.Empty(), nil
}
