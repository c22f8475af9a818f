package testutil

import (
	"sync"
	"time"
)

// ManualScheduler implements engine.Scheduler with explicit stepping.
// Nothing fires on its own: the test calls Tick (or StepFrames together
// with a VirtualClock) to deliver each frame, so movement progress is a
// pure function of how far the test advanced time.
type ManualScheduler struct {
	mu      sync.Mutex
	fn      func(now time.Time)
	started bool
}

// Start records the tick function. The returned stop function detaches it
// and is idempotent.
func (s *ManualScheduler) Start(fn func(now time.Time)) (stop func()) {
	s.mu.Lock()
	s.fn = fn
	s.started = true
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.fn = nil
			s.started = false
			s.mu.Unlock()
		})
	}
}

// Started reports whether a tick function is currently attached.
func (s *ManualScheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Tick delivers one frame at the given instant. A tick after stop is a
// no-op, matching the real scheduler's shutdown contract.
func (s *ManualScheduler) Tick(now time.Time) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(now)
	}
}

// StepFrames advances the clock by interval n times, ticking after each
// advance. It is the standard way to play a movement forward in tests.
func (s *ManualScheduler) StepFrames(clock *VirtualClock, interval time.Duration, n int) {
	for i := 0; i < n; i++ {
		s.Tick(clock.Advance(interval))
	}
}
