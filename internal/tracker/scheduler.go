package tracker

import (
	"runtime"
	"time"
)

// Scheduler abstracts the timing primitives the tracker depends on — the
// debounce delay, the time-slice measurement, and the cooperative yield —
// so the drain loop can run against a simulated clock in tests instead of
// real wall-clock timers.
type Scheduler interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run after d and returns a handle that can
	// cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer

	// Yield hands control back to the host scheduler between time slices.
	Yield()
}

// Timer is a cancellable handle to a pending [Scheduler.AfterFunc] call.
type Timer interface {
	// Stop cancels the pending call. It reports whether the call was still
	// pending; a false return means the function already ran or was stopped.
	Stop() bool
}

// realScheduler is the production [Scheduler], backed by the runtime's
// timers and goroutine scheduler.
type realScheduler struct{}

var _ Scheduler = realScheduler{}

func (realScheduler) Now() time.Time {
	return time.Now()
}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realScheduler) Yield() {
	runtime.Gosched()
}
