package perf

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func quietMonitor(cfg Config) *Monitor {
	return NewMonitor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMonitor_FPSFromRollingWindow(t *testing.T) {
	m := quietMonitor(Config{WindowSize: 4})

	// Four 20ms frames: average delta 20ms, FPS 50
	for i := 0; i < 4; i++ {
		m.RecordFrameDelta(20)
	}

	assert.InDelta(t, 50.0, m.FPS(), 0.01)
}

func TestMonitor_FPSBeforeAnySample(t *testing.T) {
	m := quietMonitor(Config{})
	assert.Equal(t, 60.0, m.FPS(), "empty window reports the target cadence")
}

func TestMonitor_WindowEvictsOldSamples(t *testing.T) {
	m := quietMonitor(Config{WindowSize: 2})

	m.RecordFrameDelta(100)
	m.RecordFrameDelta(100)
	// These two evict the slow samples
	m.RecordFrameDelta(10)
	m.RecordFrameDelta(10)

	assert.InDelta(t, 100.0, m.FPS(), 0.01)
}

func TestMonitor_DroppedFrames(t *testing.T) {
	m := quietMonitor(Config{})

	m.RecordFrameDelta(16.7) // fine
	m.RecordFrameDelta(25)   // dropped (>20ms)
	m.RecordFrameDelta(19)   // fine
	m.RecordFrameDelta(50)   // dropped

	assert.Equal(t, 2, m.Snapshot().DroppedFrames)
}

func TestMonitor_DegradationSignal(t *testing.T) {
	m := quietMonitor(Config{WindowSize: 4})

	assert.False(t, m.Degraded())
	assert.Equal(t, 1.0, m.DurationScale())

	// 30ms frames: ~33 FPS, below the 45 FPS threshold
	for i := 0; i < 4; i++ {
		m.RecordFrameDelta(30)
	}

	assert.True(t, m.Degraded())
	assert.Equal(t, 0.6, m.DurationScale())
}

func TestMonitor_OptimizeDecrementsExactlyOne(t *testing.T) {
	m := quietMonitor(Config{})

	m.OpStarted()
	m.OpStarted()
	m.OpStarted()

	m.Optimize()

	snap := m.Snapshot()
	assert.True(t, snap.IsOptimized)
	assert.Equal(t, 2, snap.ActiveOperations, "optimize throttles by exactly one, not a reset")
	assert.False(t, m.AccelerationHintsEnabled())
}

func TestMonitor_OptimizeFloorsAtZero(t *testing.T) {
	m := quietMonitor(Config{})
	m.Optimize()
	assert.Equal(t, 0, m.Snapshot().ActiveOperations)
}

func TestMonitor_OpCounting(t *testing.T) {
	m := quietMonitor(Config{})

	assert.Equal(t, 1, m.OpStarted())
	assert.Equal(t, 2, m.OpStarted())
	m.OpFinished()
	assert.Equal(t, 1, m.ActiveOperations())

	m.OpFinished()
	m.OpFinished() // extra release is a no-op
	assert.Equal(t, 0, m.ActiveOperations())
}

func TestMonitor_MemoryBestEffort(t *testing.T) {
	m := quietMonitor(Config{})
	m.sampleMem = func() (float64, error) {
		return 0, errors.New("no memory introspection on this host")
	}

	assert.Equal(t, 0.0, m.Snapshot().CanvasMemoryMB, "missing capability degrades to zero")
	// Second snapshot must not re-probe a known-missing capability
	assert.Equal(t, 0.0, m.Snapshot().CanvasMemoryMB)
}

func TestMonitor_AverageMovementTime(t *testing.T) {
	m := quietMonitor(Config{})

	m.RecordMovementDuration(400)
	m.RecordMovementDuration(800)

	assert.Equal(t, 600.0, m.Snapshot().AverageMovementTimeMS)
}

func TestMonitor_Reset(t *testing.T) {
	m := quietMonitor(Config{WindowSize: 4})

	for i := 0; i < 4; i++ {
		m.RecordFrameDelta(30)
	}
	m.Optimize()
	m.Reset()

	snap := m.Snapshot()
	assert.False(t, snap.IsOptimized)
	assert.Equal(t, 0, snap.DroppedFrames)
	assert.Equal(t, 60.0, snap.CanvasRenderFPS)
	assert.Equal(t, 1.0, m.DurationScale())
}
