package options

// UniversalOption is the toggle propagated from the root to every non-build
// dependency that declares support for it.
const UniversalOption = "universal"

// Build is the effective option set for one formula instance: the union of
// the explicit request, options recorded from a prior install, and options
// inherited from the dependent. Read-only after construction.
type Build struct {
	set *Set
}

// NewBuild computes the effective option set. The inputs may be nil.
func NewBuild(explicit, recorded, inherited *Set) Build {
	return Build{set: explicit.Union(recorded).Union(inherited)}
}

// Include reports whether the effective set contains the named option
func (b Build) Include(name string) bool {
	return b.set.Include(name)
}

// With reports whether the formula is built with the named feature,
// i.e. "--with-<name>" or the bare option name is requested.
func (b Build) With(name string) bool {
	return b.set.Include("with-"+name) || b.set.Include(name)
}

// Without reports whether "--without-<name>" is requested
func (b Build) Without(name string) bool {
	return b.set.Include("without-" + name)
}

// Universal reports whether the universal option is in effect
func (b Build) Universal() bool {
	return b.set.Include(UniversalOption)
}

// Empty reports whether no options are in effect
func (b Build) Empty() bool {
	return b.set.Empty()
}

// Used returns a copy of the effective option set
func (b Build) Used() *Set {
	return NewSet().Union(b.set)
}

// Flags returns the sorted command-line form of the effective options
func (b Build) Flags() []string {
	return b.set.Flags()
}
