package engine

import (
	"sync"
	"time"
)

// FrameInterval is the target tick cadence: one callback per display
// refresh at 60Hz. The cadence is a target, not a guarantee - progress is
// always computed from the clock, never from tick counts.
const FrameInterval = time.Second / 60

// Scheduler delivers per-frame callbacks to the orchestrator. The
// production implementation wraps a time.Ticker; tests substitute a manual
// scheduler driven by a virtual clock, which makes every movement
// deterministic.
//
// Start returns a stop function that must be idempotent and must guarantee
// no callback runs after it returns - teardown may never leak a timer.
// The stop function may block on the delivery goroutine, so it must never
// be called from within fn.
type Scheduler interface {
	Start(fn func(now time.Time)) (stop func())
}

// TickerScheduler drives ticks from a time.Ticker on a dedicated goroutine.
type TickerScheduler struct {
	// Interval overrides FrameInterval when positive.
	Interval time.Duration
}

// Start implements Scheduler.
func (s *TickerScheduler) Start(fn func(now time.Time)) (stop func()) {
	interval := s.Interval
	if interval <= 0 {
		interval = FrameInterval
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			wg.Wait()
		})
	}
}
