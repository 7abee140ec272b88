package install

// State is one step of the install sequence.
type State int

const (
	StatePending State = iota
	StateLocking
	StateVerifyingPreconditions
	StateCheckingConflicts
	StateResolvingDependencies
	StateInstalling
	StateLinking
	StateFixingReferences
	StatePostInstall
	StateCleaningUp
	StateFinished

	// StateRolledBack: the build or pour failed and every effect was
	// undone.
	StateRolledBack

	// StatePartiallyFailed: the keg is installed but a post-mutation
	// step warned. The run still counts as successful.
	StatePartiallyFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLocking:
		return "locking"
	case StateVerifyingPreconditions:
		return "verifying-preconditions"
	case StateCheckingConflicts:
		return "checking-conflicts"
	case StateResolvingDependencies:
		return "resolving-dependencies"
	case StateInstalling:
		return "installing"
	case StateLinking:
		return "linking"
	case StateFixingReferences:
		return "fixing-references"
	case StatePostInstall:
		return "post-install"
	case StateCleaningUp:
		return "cleaning-up"
	case StateFinished:
		return "finished"
	case StateRolledBack:
		return "rolled-back"
	case StatePartiallyFailed:
		return "partially-failed"
	default:
		return "unknown"
	}
}
