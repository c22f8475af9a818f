// Package testutil provides deterministic time and scheduling helpers for
// engine and harness tests.
package testutil

import (
	"sync"
	"time"
)

// VirtualClock is a thread-safe manually advanced clock for tests.
//
// Unlike engine.SystemClock, VirtualClock only moves when Advance is
// called. This lets a test step a movement to an exact progress value and
// makes every run of a scenario produce identical timings.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock creates a clock frozen at the given instant.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual instant without advancing it.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
// Negative durations are ignored so virtual time stays monotonic.
func (c *VirtualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}

// Set jumps the clock to an absolute instant. Used for test reuse; jumps
// backwards are allowed here because a fresh scenario resets all state.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
