package engine

import "time"

// Clock supplies the current time to the orchestrator. Movement progress is
// derived purely from Clock readings, so swapping in a virtual clock makes
// every movement deterministic and replayable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock. The production default.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
