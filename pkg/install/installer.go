// Package install orchestrates the installation of one formula: locking,
// precondition checks, dependency resolution, bottle pour or isolated
// source build, linking and post-install, with full rollback on failure.
package install

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/bottle"
	"github.com/winordie-47/linuxbrew1/pkg/build"
	"github.com/winordie-47/linuxbrew1/pkg/config"
	"github.com/winordie-47/linuxbrew1/pkg/errors"
	"github.com/winordie-47/linuxbrew1/pkg/formula"
	"github.com/winordie-47/linuxbrew1/pkg/interrupt"
	"github.com/winordie-47/linuxbrew1/pkg/keg"
	"github.com/winordie-47/linuxbrew1/pkg/lock"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/options"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
	"github.com/winordie-47/linuxbrew1/pkg/resolve"
	"github.com/winordie-47/linuxbrew1/pkg/tab"
	"github.com/winordie-47/linuxbrew1/pkg/types"
)

// Options is the installer's invocation configuration. One orchestrator
// type covers both the top-level and the dependency-mode install; behavior
// differences hang off these flags.
type Options struct {
	// RequestedOptions are the explicit build options for the root
	RequestedOptions []string

	IgnoreDependencies bool
	OnlyDependencies   bool
	BuildFromSource    bool
	BuildBottle        bool
	ForceBottle        bool
	Interactive        bool
	IgnoreConflicts    bool

	// DevStrict makes a pour failure fatal instead of degrading to a
	// source build
	DevStrict bool

	Verbose bool
	Debug   bool

	// DependencyMode marks a nested install performed for a dependent
	DependencyMode bool
}

// Result is the outcome surfaced to the invoker.
type Result struct {
	Name             string
	State            State
	PouredFromBottle bool
	BuildTime        time.Duration
	KegPath          string
	Warnings         []string
}

// Installer runs the install state sequence for a single formula,
// recursively invoking itself in dependency mode for each dependency.
type Installer struct {
	fs      types.FS
	paths   paths.Paths
	store   formula.Store
	checker formula.Checker
	session *Session
	cfg     *config.Config
	opts    Options

	policy   *bottle.Policy
	pourer   *bottle.Pourer
	runner   *build.Runner
	expander *resolve.Expander
	linker   *keg.Linker

	state  State
	logger zerolog.Logger
}

// New creates an Installer for one top-level run.
func New(fs types.FS, p paths.Paths, store formula.Store, checker formula.Checker, session *Session, cfg *config.Config, fetcher bottle.Fetcher, opts Options) *Installer {
	policy := bottle.NewPolicy(p, bottle.Flags{
		ForceBottle:     opts.ForceBottle,
		BuildFromSource: opts.BuildFromSource,
		BuildBottle:     opts.BuildBottle,
		Interactive:     opts.Interactive,
		ExplicitOptions: len(opts.RequestedOptions) > 0,
	}, cfg.Bottle)

	in := &Installer{
		fs:      fs,
		paths:   p,
		store:   store,
		checker: checker,
		session: session,
		cfg:     cfg,
		opts:    opts,
		policy:  policy,
		pourer:  bottle.NewPourer(fs, p, fetcher),
		runner:  build.NewRunner(fs, p, cfg.Build),
		linker:  keg.NewLinker(fs, p),
		logger:  logging.GetLogger("install"),
	}
	in.expander = resolve.NewExpander(fs, p, store, checker, policy, cfg.Behavior)
	return in
}

// Install orchestrates the installation of the named formula.
func (in *Installer) Install(name string) (*Result, error) {
	f, err := in.lookup(name)
	if err != nil {
		return nil, err
	}

	explicit := options.FromNames(in.opts.RequestedOptions...)
	if err := in.checkOptions(f, explicit); err != nil {
		return nil, err
	}

	return in.install(f, options.NewBuild(explicit, nil, nil))
}

// lookup finds the formula, retrying once after a tap fetch when the first
// lookup misses.
func (in *Installer) lookup(name string) (*formula.Formula, error) {
	f, err := in.store.Lookup(name)
	if err == nil {
		return f, nil
	}
	if !errors.IsErrorCode(err, errors.ErrFormulaNotFound) || !in.cfg.Behavior.RetryTapFetch {
		return nil, err
	}
	in.logger.Info().Str("formula", name).Msg("Formula not found, refreshing tap")
	if fetchErr := in.store.Fetch(); fetchErr != nil {
		return nil, errors.Wrapf(fetchErr, errors.ErrTapUnavailable, "fetching tap for %q", name)
	}
	return in.store.Lookup(name)
}

func (in *Installer) checkOptions(f *formula.Formula, explicit *options.Set) error {
	declared := f.DeclaredOptions()
	for _, name := range explicit.Names() {
		if !declared.Include(name) {
			return errors.Newf(errors.ErrOptionUnrecognized,
				"formula %s has no option --%s", f.Name, name)
		}
	}
	return nil
}

// install runs the full state sequence under the frozen effective options.
func (in *Installer) install(f *formula.Formula, buildOpts options.Build) (*Result, error) {
	result := &Result{Name: f.Name, State: StatePending}
	log := in.logger.With().Str("formula", f.Name).Bool("dependency", in.opts.DependencyMode).Logger()

	// Locking. Idempotent: nested installs find the registry populated
	// and hold nothing.
	in.setState(StateLocking)
	hold, err := in.acquireLocks(f)
	if err != nil {
		return result, err
	}
	defer func() {
		_ = interrupt.Defer(func() error {
			hold.Release()
			return nil
		})
	}()

	// Preconditions, before any mutation.
	in.setState(StateVerifyingPreconditions)
	if err := in.verifyPreconditions(f); err != nil {
		if in.opts.DependencyMode && errors.IsErrorCode(err, errors.ErrAlreadyInstalled) {
			log.Debug().Msg("Dependency already installed")
			result.State = StateFinished
			return result, nil
		}
		return result, err
	}

	in.setState(StateCheckingConflicts)
	if !in.opts.IgnoreConflicts {
		if err := in.checkConflicts(f); err != nil {
			return result, err
		}
	}

	// Dependencies first.
	in.setState(StateResolvingDependencies)
	if !in.opts.IgnoreDependencies {
		if err := in.resolveAndInstallDependencies(f, buildOpts); err != nil {
			return result, err
		}
	}

	if in.opts.OnlyDependencies && !in.opts.DependencyMode {
		log.Info().Msg("Dependencies installed, root skipped")
		result.State = StateFinished
		return result, nil
	}

	// Pour or build.
	in.setState(StateInstalling)
	warningsBefore := len(in.session.Warnings())
	poured, buildTime, err := in.pourOrBuild(f, buildOpts)
	if err != nil {
		in.setState(StateRolledBack)
		result.State = StateRolledBack
		return result, err
	}
	result.PouredFromBottle = poured
	result.BuildTime = buildTime

	k := keg.New(in.paths, f.Name, f.Version)
	result.KegPath = k.Path
	in.writeTab(f, buildOpts, poured)

	// Everything from here is best-effort: caught, reported, flagged,
	// never unwinding the install.
	in.setState(StateLinking)
	in.link(f, k)

	in.setState(StateFixingReferences)
	if poured {
		if _, err := keg.Relocate(in.fs, in.paths, k); err != nil {
			in.session.Fail("reference fixup for " + f.Name + " failed: " + err.Error())
		}
	}

	in.setState(StatePostInstall)
	in.postInstall(f, k)

	in.setState(StateCleaningUp)
	if err := in.cleanup(f); err != nil {
		in.session.Fail("cleanup for " + f.Name + " failed: " + err.Error())
	}

	in.setState(StateFinished)
	result.State = StateFinished
	if len(in.session.Warnings()) > warningsBefore {
		result.State = StatePartiallyFailed
	}
	result.Warnings = in.session.Warnings()

	log.Info().
		Str("keg", k.Path).
		Bool("poured", poured).
		Str("state", result.State.String()).
		Msg("Install finished")
	return result, nil
}

// acquireLocks locks the formula and its transitive dependency closure for
// the run, inside a deferred-interrupt scope.
func (in *Installer) acquireLocks(f *formula.Formula) (*lock.Hold, error) {
	var names []string
	if !in.opts.IgnoreDependencies {
		var err error
		names, err = in.closureNames(f)
		if err != nil {
			return nil, err
		}
	}

	var hold *lock.Hold
	err := interrupt.Defer(func() error {
		h, err := in.session.Locks.Acquire(f.Name, names)
		if err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// closureNames walks the unpruned dependency graph by name. The lock set
// covers everything that could possibly be touched; pruning happens later.
func (in *Installer) closureNames(f *formula.Formula) ([]string, error) {
	var names []string
	seen := map[string]bool{f.Name: true}
	queue := append([]formula.Dependency{}, f.Dependencies...)
	for len(queue) > 0 {
		edge := queue[0]
		queue = queue[1:]
		if seen[edge.Name] {
			continue
		}
		seen[edge.Name] = true
		names = append(names, edge.Name)
		dep, err := in.store.Lookup(edge.Name)
		if err != nil {
			if errors.IsErrorCode(err, errors.ErrFormulaNotFound) {
				continue // surfaces properly during resolution
			}
			return nil, err
		}
		queue = append(queue, dep.Dependencies...)
	}
	return names, nil
}

func (in *Installer) verifyPreconditions(f *formula.Formula) error {
	if in.session.Attempted(f.Name) {
		return errors.Newf(errors.ErrAlreadyAttempted,
			"%s was already scheduled in this run (dependency cycle or duplicate)", f.Name)
	}
	in.session.MarkAttempted(f.Name)

	if version := keg.InstalledVersion(in.fs, in.paths, f.Name); version != "" {
		return errors.Newf(errors.ErrAlreadyInstalled,
			"%s %s is already installed", f.Name, version)
	}

	if !in.opts.IgnoreDependencies {
		if err := in.checkUnlinkedDependencies(f); err != nil {
			return err
		}
	}
	return nil
}

// checkUnlinkedDependencies fails the run when an installed-but-unlinked
// dependency would silently break the build.
func (in *Installer) checkUnlinkedDependencies(f *formula.Formula) error {
	var offenders []string
	for _, edge := range f.Dependencies {
		dep, err := in.store.Lookup(edge.Name)
		if err != nil {
			continue
		}
		if dep.KegOnly {
			continue
		}
		version := keg.InstalledVersion(in.fs, in.paths, dep.Name)
		if version == "" {
			continue
		}
		if !in.linker.Linked(keg.New(in.paths, dep.Name, version)) {
			offenders = append(offenders, dep.Name)
		}
	}
	if len(offenders) > 0 {
		return errors.Newf(errors.ErrUnlinkedDependency,
			"cannot install %s: unlinked dependencies block the build: %s",
			f.Name, strings.Join(offenders, ", ")).
			WithDetail("dependencies", offenders)
	}
	return nil
}

func (in *Installer) checkConflicts(f *formula.Formula) error {
	for _, name := range f.Conflicts {
		version := keg.InstalledVersion(in.fs, in.paths, name)
		if version == "" {
			continue
		}
		if in.linker.Linked(keg.New(in.paths, name, version)) {
			return errors.Newf(errors.ErrFormulaConflict,
				"%s conflicts with linked formula %s", f.Name, name)
		}
	}
	return nil
}

// resolveAndInstallDependencies expands requirements and dependencies
// under the effective options and installs each dependency in order,
// swapping already-installed versions aside atomically.
func (in *Installer) resolveAndInstallDependencies(f *formula.Formula, buildOpts options.Build) error {
	params := resolve.Params{RootBuild: buildOpts, BuildBottle: in.opts.BuildBottle}

	reqs, err := in.expander.ExpandRequirements(f, params)
	if err != nil {
		return err
	}
	for dependent, unresolved := range reqs.Unsatisfied {
		for _, r := range unresolved {
			in.logger.Warn().
				Str("dependent", dependent).
				Str("requirement", r.Name).
				Msg("Requirement not satisfied")
		}
	}

	deps, err := in.expander.ExpandDependencies(f, reqs.Synthesized, params)
	if err != nil {
		return err
	}

	for _, rd := range deps {
		if err := in.installDependency(rd); err != nil {
			return err
		}
	}
	return nil
}

func (in *Installer) installDependency(rd resolve.ResolvedDependency) error {
	in.logger.Info().
		Str("dependency", rd.Formula.Name).
		Strs("options", rd.Options.Flags()).
		Msg("Installing dependency")

	nested := func() error {
		child := in.dependencyInstaller()
		_, err := child.install(rd.Formula, options.NewBuild(nil, nil, rd.Options))
		return err
	}

	if version := keg.InstalledVersion(in.fs, in.paths, rd.Formula.Name); version != "" {
		oldKeg := keg.New(in.paths, rd.Formula.Name, version)
		return in.swapDependency(oldKeg, nested)
	}
	return nested()
}

// dependencyInstaller derives the nested installer: same session, same
// policy state, dependency mode on.
func (in *Installer) dependencyInstaller() *Installer {
	child := *in
	child.opts.DependencyMode = true
	child.opts.OnlyDependencies = false
	child.opts.RequestedOptions = nil
	return &child
}

// pourOrBuild installs the keg from the bottle when policy allows,
// degrading to a source build on pour failure unless the run is strict.
func (in *Installer) pourOrBuild(f *formula.Formula, buildOpts options.Build) (bool, time.Duration, error) {
	if in.wantsBottle(f, buildOpts) {
		_, err := in.pourer.Pour(f)
		if err == nil {
			return true, 0, nil
		}
		in.policy.MarkPourFailed(f.Name)
		if in.opts.DevStrict {
			return false, 0, err
		}
		in.logger.Warn().Err(err).Str("formula", f.Name).Msg("Bottle pour failed, building from source")

		// The bottle is off the table now, so build-time dependencies
		// pruned under the bottle assumption must be resolved and
		// installed before the build.
		if !in.opts.IgnoreDependencies {
			if derr := in.resolveAndInstallDependencies(f, buildOpts); derr != nil {
				return false, 0, derr
			}
		}
	}

	start := time.Now()
	if err := in.runner.Run(f, buildOpts); err != nil {
		return false, 0, err
	}
	return false, time.Since(start), nil
}

// wantsBottle is the pour decision for the run's mode. A nested dependency
// install consults its own effective option set: a bottle encodes one fixed
// option set, so a dependency carrying custom options always builds.
func (in *Installer) wantsBottle(f *formula.Formula, buildOpts options.Build) bool {
	if in.opts.DependencyMode {
		return !in.policy.PourFailed(f.Name) &&
			in.policy.DependencyUsesBottle(f, buildOpts.Used())
	}
	return in.policy.UsesBottle(f)
}

func (in *Installer) writeTab(f *formula.Formula, buildOpts options.Build, poured bool) {
	t := &tab.Tab{
		UsedOptions:      buildOpts.Used().Names(),
		UnusedOptions:    f.DeclaredOptions().Difference(buildOpts.Used()).Names(),
		PouredFromBottle: poured,
		Variant:          string(f.Variant),
	}
	if err := t.Write(in.fs, in.paths.TabPath(f.Name, f.Version)); err != nil {
		in.session.Fail("writing install receipt for " + f.Name + " failed: " + err.Error())
	}
}

// link integrates the keg into the prefix. Failures leave the formula
// installed but unlinked and flag the run.
func (in *Installer) link(f *formula.Formula, k keg.Keg) {
	if f.KegOnly {
		// Keg-only formulae get an opt link and nothing else. A failure
		// is reported; dependents that cannot find the keg surface their
		// own errors later.
		if err := in.linker.OptLink(k); err != nil {
			in.logger.Warn().Err(err).Str("formula", f.Name).Msg("Failed to create opt link")
		}
		return
	}

	if _, err := in.linker.Link(k); err != nil {
		if errors.IsErrorCode(err, errors.ErrLinkConflict) {
			conflicts, _ := errors.GetErrorDetails(err)["conflicts"].([]string)
			for _, path := range conflicts {
				in.logger.Warn().Str("path", path).Msg("Link target already occupied")
			}
			in.session.Fail(f.Name + " installed but not linked: " +
				strings.Join(conflicts, ", ") + " already exist")
		} else {
			in.session.Fail(f.Name + " installed but not linked: " + err.Error() +
				"; retry with `lbrew link " + f.Name + "` once resolved")
		}
		return
	}

	if err := in.linker.OptLink(k); err != nil {
		in.logger.Warn().Err(err).Str("formula", f.Name).Msg("Failed to create opt link")
	}
}

// cleanup removes staging leftovers that earlier aborted replacements of
// this formula left in its cellar container. Best effort: a failure flags
// the run and nothing else.
func (in *Installer) cleanup(f *formula.Formula) error {
	parent := in.paths.KegParent(f.Name)
	entries, err := in.fs.ReadDir(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrCleanup, "scanning %s for staging leftovers", parent)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), paths.TmpSuffix) {
			continue
		}
		stale := filepath.Join(parent, e.Name())
		in.logger.Info().Str("path", stale).Msg("Removing staging leftover")
		if err := in.fs.RemoveAll(stale); err != nil {
			return errors.Wrapf(err, errors.ErrCleanup, "removing staging leftover %s", stale)
		}
	}
	return nil
}

func (in *Installer) postInstall(f *formula.Formula, k keg.Keg) {
	if !f.PostInstall {
		return
	}
	if err := in.runPostInstall(f, k); err != nil {
		in.session.Fail("post-install for " + f.Name + " failed: " + err.Error())
	}
}

func (in *Installer) setState(s State) {
	in.state = s
	if in.opts.Debug {
		in.logger.Info().Str("state", s.String()).Msg("State transition")
	} else {
		in.logger.Debug().Str("state", s.String()).Msg("State transition")
	}
}
