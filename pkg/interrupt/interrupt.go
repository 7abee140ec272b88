// Package interrupt provides cancellation-masking scopes. Restoration work
// such as swap rollback and lock bookkeeping must not be torn mid-way by a
// user interrupt; signals arriving during a scope are queued and redelivered
// to the process immediately after the scope exits.
package interrupt

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/winordie-47/linuxbrew1/pkg/logging"
)

// Signals deferred by a scope.
var deferred = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Defer runs fn with interrupt delivery deferred. Signals received while fn
// runs are replayed to the process after fn returns.
func Defer(fn func() error) error {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, deferred...)

	err := fn()

	signal.Stop(ch)
	for {
		select {
		case sig := <-ch:
			replay(sig)
		default:
			return err
		}
	}
}

func replay(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	log := logging.GetLogger("interrupt")
	log.Debug().Str("signal", s.String()).Msg("Replaying deferred signal")
	if err := syscall.Kill(os.Getpid(), s); err != nil {
		log.Warn().Err(err).Str("signal", s.String()).Msg("Failed to replay deferred signal")
	}
}

// Notify registers ch for the signals a scope would defer. The build runner
// uses it to observe interrupts while waiting on the child so they can be
// forwarded instead of abandoning the build.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, deferred...)
}

// Stop undoes Notify.
func Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}
