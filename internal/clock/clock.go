// Package clock abstracts wall time so the poller can be driven by a fake
// clock in tests.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause sleeps for d in steps of at most step, asking stopped before each
// step. It returns false if stopped reported true or ctx ended first.
func Pause(ctx context.Context, c Clock, d, step time.Duration, stopped func() bool) bool {
	deadline := c.Now().Add(d)
	for {
		if (stopped != nil && stopped()) || ctx.Err() != nil {
			return false
		}
		remaining := deadline.Sub(c.Now())
		if remaining <= 0 {
			return true
		}
		if step > 0 && remaining > step {
			remaining = step
		}
		if err := c.Sleep(ctx, remaining); err != nil {
			return false
		}
	}
}

// Fake is a manually driven clock. Sleep advances time immediately.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	hooks []hook
	slept time.Duration
	naps  int
}

type hook struct {
	at time.Time
	fn func()
}

func NewFake(start time.Time) *Fake { return &Fake{now: start} }

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.slept += d
	f.naps++
	f.mu.Unlock()
	f.Advance(d)
	return nil
}

// Advance moves time forward and runs any hooks that came due, in order.
// A hook due mid-way stops the clock at its instant before running.
func (f *Fake) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()
	for {
		f.mu.Lock()
		if len(f.hooks) == 0 || f.hooks[0].at.After(target) {
			f.now = target
			f.mu.Unlock()
			return
		}
		h := f.hooks[0]
		f.hooks = f.hooks[1:]
		if h.at.After(f.now) {
			f.now = h.at
		}
		f.mu.Unlock()
		h.fn()
	}
}

// At registers fn to run once the clock reaches t.
func (f *Fake) At(t time.Time, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook{at: t, fn: fn})
	sort.SliceStable(f.hooks, func(i, j int) bool { return f.hooks[i].at.Before(f.hooks[j].at) })
}

// Slept is the total duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// Naps counts Sleep calls.
func (f *Fake) Naps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.naps
}
