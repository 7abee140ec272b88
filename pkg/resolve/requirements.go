package resolve

import (
	"strings"

	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/options"
)

// RequirementResult is the outcome of requirement expansion: requirements
// that remain unresolved, keyed by dependent formula name, and dependencies
// synthesized from requirement substitutes.
type RequirementResult struct {
	Unsatisfied map[string][]formula.Requirement
	Synthesized []formula.Dependency
}

// workItem is one formula awaiting requirement traversal.
type workItem struct {
	formula *formula.Formula
	build   options.Build
	isRoot  bool
}

// ExpandRequirements traverses the requirement tree seeded at root,
// pruning per the option set and bottle policy, and collects whatever
// remains unresolved. All fatal unsatisfied requirements abort together.
func (e *Expander) ExpandRequirements(root *formula.Formula, params Params) (*RequirementResult, error) {
	result := &RequirementResult{
		Unsatisfied: make(map[string][]formula.Requirement),
	}

	stack := []workItem{{formula: root, build: params.RootBuild, isRoot: true}}
	pushed := map[string]bool{root.Name: true}

	var fatal []string

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, req := range item.formula.Requirements {
			switch e.pruneRequirement(item, req, params) {
			case actionIgnore:
				e.logger.Trace().
					Str("dependent", item.formula.Name).
					Str("requirement", req.Name).
					Msg("Requirement pruned")

			case actionSubstitute:
				if pushed[req.DefaultFormula] {
					continue
				}
				sub, err := e.store.Lookup(req.DefaultFormula)
				if err != nil {
					return nil, err
				}
				pushed[sub.Name] = true
				stack = append(stack, workItem{
					formula: sub,
					build:   options.NewBuild(nil, nil, nil),
				})
				dep := formula.Dependency{Name: sub.Name, Tag: formula.TagRequired}
				if req.Build {
					dep.Tag = formula.TagBuild
				}
				result.Synthesized = append([]formula.Dependency{dep}, result.Synthesized...)
				e.logger.Debug().
					Str("dependent", item.formula.Name).
					Str("requirement", req.Name).
					Str("substitute", sub.Name).
					Msg("Requirement satisfied by installable substitute")

			case actionRecord:
				result.Unsatisfied[item.formula.Name] = append(result.Unsatisfied[item.formula.Name], req)
				if req.Fatal {
					fatal = append(fatal, req.Name+" (needed by "+item.formula.Name+")")
				}
			}
		}
	}

	if len(fatal) > 0 {
		return nil, errors.Newf(errors.ErrUnsatisfiedRequire,
			"unsatisfied requirements: %s", strings.Join(fatal, ", ")).
			WithDetail("requirements", fatal)
	}

	return result, nil
}

// requirementAction is the internal disposition of one requirement.
type requirementAction int

const (
	actionIgnore requirementAction = iota
	actionSubstitute
	actionRecord
)

// pruneRequirement applies the pruning rules in priority order.
func (e *Expander) pruneRequirement(item workItem, req formula.Requirement, params Params) requirementAction {
	// 1. Optional or recommended, and excluded by the dependent's
	// effective options.
	if req.Optional() && !item.build.With(req.Name) {
		return actionIgnore
	}
	if req.Recommended() && item.build.Without(req.Name) {
		return actionIgnore
	}

	// 2. Build-time requirement of a root that pours from a bottle.
	if req.Build && item.isRoot && e.policy.UsesBottle(item.formula) {
		return actionIgnore
	}

	// 3. Build-time requirement of a non-root dependent that itself
	// pours from a bottle.
	if req.Build && !item.isRoot && e.policy.UsesBottle(item.formula) {
		return actionIgnore
	}

	satisfied := e.checker.Satisfied(req)

	// 4. Unsatisfied, with an installable substitute that is wanted.
	if req.DefaultFormula != "" && !satisfied {
		if req.UseDefault || params.BuildBottle || e.policy.UsesBottle(item.formula) {
			return actionSubstitute
		}
	}

	// 5. Already satisfied.
	if satisfied {
		return actionIgnore
	}

	// 6. Unresolved; fatal ones contribute to a hard failure.
	return actionRecord
}
