package timer

import (
	"sync"
	"time"
)

// Fake is a Timer driven by a simulated clock. Nothing fires until Advance.
type Fake struct {
	fn func()

	mu       sync.Mutex
	now      time.Duration
	deadline time.Duration
	duration time.Duration
	active   bool
	fired    int
}

var _ Timer = (*Fake)(nil)

// NewFake returns a disarmed fake timer that calls fn on simulated expiry.
func NewFake(fn func()) *Fake {
	return &Fake{fn: fn}
}

func (f *Fake) Reset(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = d
	f.deadline = f.now + d
	f.active = true
}

func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
}

func (f *Fake) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Duration returns the duration passed to the most recent Reset.
func (f *Fake) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

// Fired returns how many times the callback has run.
func (f *Fake) Fired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired
}

// Advance moves the simulated clock forward by d and fires the callback
// if the armed deadline has been reached. The callback runs on the caller's goroutine.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	due := f.active && f.now >= f.deadline
	if due {
		f.active = false
		f.fired++
	}
	f.mu.Unlock()

	if due {
		f.fn()
	}
}
