package uthreads

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// timerBinding owns the virtual interval timer and the SIGVTALRM
// delivery path. It is the Go-native realization of spec §4.3's
// "Timer & Signal Binding": the same host facility (ITIMER_VIRTUAL,
// SIGVTALRM) the original C library uses, reached through
// golang.org/x/sys/unix instead of <sys/time.h>/<csignal>.
//
// Go's os/signal package cannot deliver SIGVTALRM synchronously onto
// the interrupted goroutine's own stack the way a C sigaction handler
// would -- it always redelivers asynchronously via a channel read on a
// dedicated goroutine. That goroutine is this binding's "handler"; it
// only flags that a quantum elapsed, and a thread is preempted the next
// time it calls into the library -- see DESIGN.md for this platform gap.
type timerBinding struct {
	value unix.Itimerval
	sigCh chan os.Signal
	stop  chan struct{}
}

func newTimerBinding(quantumUsecs int) *timerBinding {
	usec := int64(quantumUsecs) % 1000000
	sec := int64(quantumUsecs) / 1000000
	spec := unix.Timeval{Sec: sec, Usec: usec}
	return &timerBinding{
		value: unix.Itimerval{Interval: spec, Value: spec},
		sigCh: make(chan os.Signal, 1),
		stop:  make(chan struct{}),
	}
}

// install registers the SIGVTALRM handler and starts the dedicated
// delivery goroutine, which invokes onTick for every quantum that
// elapses. install does not arm the timer itself -- callers arm it with
// rearm once the scheduler is ready to receive ticks.
func (tb *timerBinding) install(onTick func()) {
	signal.Notify(tb.sigCh, syscall.SIGVTALRM)
	go func() {
		for {
			select {
			case <-tb.sigCh:
				onTick()
			case <-tb.stop:
				signal.Stop(tb.sigCh)
				return
			}
		}
	}()
}

// rearm resets the virtual timer to a full quantum from now, matching
// the original library's reset_timer.
func (tb *timerBinding) rearm(onFatal func(ErrKind)) {
	if _, err := unix.Setitimer(unix.ITIMER_VIRTUAL, tb.value); err != nil {
		onFatal(ErrTimerFail)
	}
}

// close stops signal delivery and disarms the timer. Used only by
// process-wide teardown (terminating tid 0), which exits immediately
// afterward.
func (tb *timerBinding) close() {
	_, _ = unix.Setitimer(unix.ITIMER_VIRTUAL, unix.Itimerval{})
	close(tb.stop)
}
