package install

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/winordie-47/linuxbrew1/pkg/lock"
	"github.com/winordie-47/linuxbrew1/pkg/logging"
	"github.com/winordie-47/linuxbrew1/pkg/paths"
)

// Session is the explicit per-run context replacing process-wide mutable
// globals: the attempted registry, the lock registry and the shared failed
// flag. Populated at orchestration start, read throughout, cleared at the
// end. One Session covers the top-level install and every nested
// dependency install within it; it is not meant for concurrent top-level
// runs in one process.
type Session struct {
	ID    string
	Locks *lock.Registry

	attempted map[string]bool
	failed    bool
	warnings  []string
	logger    zerolog.Logger
}

// NewSession creates a Session for one top-level orchestration.
func NewSession(p paths.Paths) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Locks:     lock.NewRegistry(p),
		attempted: make(map[string]bool),
		logger:    logging.GetLogger("install.session").With().Str("session", id).Logger(),
	}
}

// Attempted reports whether an install of the formula was already scheduled
// in this run. A second attempt is a cycle or duplicate scheduling and is a
// hard error at the call site, not a silent skip.
func (s *Session) Attempted(name string) bool {
	return s.attempted[name]
}

// MarkAttempted records that an install of the formula has begun.
func (s *Session) MarkAttempted(name string) {
	s.attempted[name] = true
}

// Fail records a non-fatal post-mutation warning. The install proceeds, but
// the run is surfaced to the invoker as a non-zero-attention condition.
func (s *Session) Fail(warning string) {
	s.failed = true
	s.warnings = append(s.warnings, warning)
	s.logger.Warn().Str("warning", warning).Msg("Run flagged as failed")
}

// Failed reports whether any step flagged the run.
func (s *Session) Failed() bool {
	return s.failed
}

// Warnings returns the recorded warnings in order.
func (s *Session) Warnings() []string {
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Clear resets the session at orchestration end.
func (s *Session) Clear() {
	s.attempted = make(map[string]bool)
	s.failed = false
	s.warnings = nil
}
