package resolve

// Action is the three-way result of a pruning callback evaluated per
// encountered edge. Iteration control is explicit; no sentinel errors.
type Action int

const (
	// Continue expands the edge and its subtree
	Continue Action = iota

	// Prune drops the edge and its subtree entirely
	Prune

	// Skip excludes the edge from the install list but keeps expanding
	// its subtree
	Skip
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Prune:
		return "prune"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}
