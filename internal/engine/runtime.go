package engine

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/dstutzbach/gnutella-crawler/internal/clock"
)

// Runtime bundles the timer heap, the fd dispatcher, and the clock
// into a single object a caller constructs once and threads through
// explicitly, rather than leaving them as package-level globals.
type Runtime struct {
	Clock      *clock.Clock
	Timers     *Timers
	Dispatcher *Dispatcher

	// Stdout is consulted by Run to decide whether the loop may exit:
	// the loop never returns while stdout still has buffered output.
	Stdout *File

	log   *logrus.Entry
	drain func()
}

// NewRuntime constructs a Runtime. It fails only if the platform's
// monotonic clock cannot meet the resolution the timer heap requires.
func NewRuntime(log *logrus.Entry) (*Runtime, error) {
	c, err := clock.New()
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Clock:      c,
		Timers:     NewTimers(c),
		Dispatcher: NewDispatcher(),
		log:        log,
	}, nil
}

// SetDrainFunc installs the function Run calls once per outer
// iteration after dispatching that iteration's timers and ready fds.
// This is where the admission queue's drain loop hooks in.
func (rt *Runtime) SetDrainFunc(fn func()) { rt.drain = fn }

// NewFile creates a File registered against this Runtime's dispatcher.
func (rt *Runtime) NewFile(fd int, errHandler func()) *File {
	return NewFile(rt.Dispatcher, fd, errHandler, rt.log)
}

// ActiveConnections reports the number of watched fds minus two, the
// slots stdin and stdout occupy while both are open. Once stdin has
// been closed and unregistered, the result is one less than the number
// of open peer connections.
func (rt *Runtime) ActiveConnections() int {
	n := rt.Dispatcher.Len() - 2
	if n < 0 {
		return 0
	}
	return n
}

// Run executes the dispatcher's main loop: blocks on readiness with a
// timeout derived from the next timer deadline, fires at most one
// timer or one batch of ready fds per outer iteration, then drains the
// admission queue. It returns once only stdout remains open, no timers
// are scheduled, and stdout has flushed.
func (rt *Runtime) Run() {
	for rt.moreWorkPending() {
		timeoutMs, fireNow := rt.nextTimeout()

		var n int
		if fireNow {
			n = 0
		} else {
			var err error
			n, err = rt.Dispatcher.poll(timeoutMs)
			if err != nil {
				Fatalf(rt.log, "engine: poll: %v", err)
			}
		}

		if n == 0 {
			if !rt.Timers.Empty() {
				rt.Timers.fireNext()
			}
		} else {
			rt.Dispatcher.dispatchReady(n)
		}

		if rt.drain != nil {
			rt.drain()
		}
	}
}

func (rt *Runtime) moreWorkPending() bool {
	if rt.Dispatcher.Len() > 1 {
		return true
	}
	if !rt.Timers.Empty() {
		return true
	}
	return rt.Stdout != nil && rt.Stdout.Pending()
}

// nextTimeout computes the poll(2) timeout in milliseconds for the
// next dispatcher iteration: -1 (block indefinitely) if no timer is
// scheduled, 0 immediately if the next timer is already due
// (fireNow==true tells Run to skip the poll call entirely), otherwise
// the millisecond delay until that deadline.
func (rt *Runtime) nextTimeout() (timeoutMs int, fireNow bool) {
	if rt.Timers.Empty() {
		return -1, false
	}
	delay := rt.Timers.Peek().deadline - rt.Clock.Now()
	if delay <= 0 {
		return 0, true
	}
	ms := delay.Milliseconds()
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return int(ms), false
}
