// Package clock abstracts wall-clock time and sleeping so the follower
// and monitor can be driven deterministically in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current wall-clock time
type Clock interface {
	Now() time.Time
}

// Real is the system clock
type Real struct{}

// Now returns time.Now()
func (Real) Now() time.Time { return time.Now() }

// Fake is a manually advanced clock. Its Wait method advances time instead
// of blocking, so it can stand in for a stream.Waiter.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	waits  int
	onWait func(now time.Time)
}

// NewFake creates a fake clock starting at t
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the fake current time
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// OnWait registers a hook invoked after every Wait with the new time.
// Tests use it to append to files or cross date boundaries between polls.
func (f *Fake) OnWait(fn func(now time.Time)) {
	f.mu.Lock()
	f.onWait = fn
	f.mu.Unlock()
}

// Waits returns how many times Wait has been called
func (f *Fake) Waits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits
}

// Wait advances the clock by d and returns immediately unless ctx is done
func (f *Fake) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.now = f.now.Add(d)
	f.waits++
	now, hook := f.now, f.onWait
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}
