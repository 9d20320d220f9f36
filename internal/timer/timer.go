// Package timer provides the single-shot, resettable timer used for auto-off.
package timer

import (
	"sync"
	"time"
)

// Timer fires a callback once after a duration unless reset or stopped first.
// A new timer is disarmed; Reset on a disarmed timer arms it.
type Timer interface {
	// Reset (re)arms the timer, replacing any pending fire.
	Reset(d time.Duration)
	// Stop cancels a pending fire without running the callback.
	Stop()
	// Active reports whether a fire is pending.
	Active() bool
}

// RealTimer is a Timer backed by time.AfterFunc.
type RealTimer struct {
	fn func()

	mu     sync.Mutex
	t      *time.Timer
	gen    uint64
	active bool
}

var _ Timer = (*RealTimer)(nil)

// New returns a disarmed timer that calls fn on expiry.
func New(fn func()) *RealTimer {
	return &RealTimer{fn: fn}
}

func (r *RealTimer) Reset(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t != nil {
		r.t.Stop()
	}
	r.gen++
	gen := r.gen
	r.active = true
	r.t = time.AfterFunc(d, func() { r.fire(gen) })
}

func (r *RealTimer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t != nil {
		r.t.Stop()
	}
	// invalidates a callback that already left the runtime timer
	r.gen++
	r.active = false
}

func (r *RealTimer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// fire runs fn unless the timer was reset or stopped after this fire was scheduled.
// fn runs without r.mu held so it may call back into Reset/Stop.
func (r *RealTimer) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.active = false
	r.mu.Unlock()

	r.fn()
}
