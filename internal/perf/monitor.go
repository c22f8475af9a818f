// Package perf samples frame timing and process memory, maintains a rolling
// FPS estimate, and feeds a degradation signal back into the orchestrator.
//
// The monitor is deliberately decoupled from the tick scheduler: the
// orchestrator reports frame deltas and movement durations, the monitor
// aggregates, and the orchestrator reads the resulting signals when starting
// movements. The defaults below are heuristics, not contracts - every
// threshold is configurable.
package perf

import (
	"log/slog"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// Config tunes the monitor. Zero values select the defaults.
type Config struct {
	// WindowSize is the number of frame deltas in the rolling window.
	// Default 60 (one second of samples at the target rate).
	WindowSize int
	// TargetFPS is the nominal refresh cadence. Default 60.
	TargetFPS float64
	// DroppedFrameThresholdMS marks a frame as dropped when its delta
	// exceeds this. Default 20ms (target 16.67ms plus tolerance).
	DroppedFrameThresholdMS float64
	// DegradedFPSThreshold triggers the degradation signal when the rolling
	// FPS estimate falls below it. Default 45.
	DegradedFPSThreshold float64
	// DegradedDurationScale is the factor applied to movement durations
	// while degraded. Default 0.6.
	DegradedDurationScale float64
}

func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = 60
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = 60
	}
	if c.DroppedFrameThresholdMS <= 0 {
		c.DroppedFrameThresholdMS = 20
	}
	if c.DegradedFPSThreshold <= 0 {
		c.DegradedFPSThreshold = 45
	}
	if c.DegradedDurationScale <= 0 {
		c.DegradedDurationScale = 0.6
	}
	return c
}

// Metrics is a point-in-time snapshot of the monitor's aggregates, shaped
// for the canvas state store.
type Metrics struct {
	CanvasRenderFPS       float64 `json:"canvas_render_fps"`
	TransformOverheadMS   float64 `json:"transform_overhead_ms"`
	CanvasMemoryMB        float64 `json:"canvas_memory_mb"`
	ActiveOperations      int     `json:"active_operations"`
	IsOptimized           bool    `json:"is_optimized"`
	AverageMovementTimeMS float64 `json:"average_movement_time_ms"`
	DroppedFrames         int     `json:"dropped_frames"`
}

// memorySampler returns the current process memory in MB. Swappable for
// tests and for hosts without memory introspection.
type memorySampler func() (float64, error)

// Monitor aggregates frame timing and resource samples.
//
// Thread-safety: all methods are safe for concurrent use. In the engine's
// single-threaded tick model the mutex is uncontended; it exists for the
// harness and CLI boundaries.
type Monitor struct {
	mu sync.Mutex

	cfg    Config
	logger *slog.Logger

	deltas []float64 // rolling window, ring-indexed
	idx    int
	filled int

	dropped     int
	activeOps   int
	optimized   bool
	suppressGPU bool

	movementCount int
	movementTotal float64

	transformOverheadMS float64

	sampleMem      memorySampler
	memUnavailable bool // set after the first failed sample; logged once
}

// NewMonitor creates a monitor with the given configuration.
func NewMonitor(cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:       cfg,
		logger:    logger,
		deltas:    make([]float64, cfg.WindowSize),
		sampleMem: processMemoryMB,
	}
}

// RecordFrameDelta feeds one frame-to-frame delta (ms) into the rolling
// window and updates the dropped-frame counter.
func (m *Monitor) RecordFrameDelta(deltaMS float64) {
	if deltaMS <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deltas[m.idx] = deltaMS
	m.idx = (m.idx + 1) % len(m.deltas)
	if m.filled < len(m.deltas) {
		m.filled++
	}
	if deltaMS > m.cfg.DroppedFrameThresholdMS {
		m.dropped++
	}
}

// RecordMovementDuration feeds a completed movement's wall duration (ms)
// into the running average.
func (m *Monitor) RecordMovementDuration(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movementCount++
	m.movementTotal += ms
}

// RecordTransformOverhead notes the most recent per-tick transform cost.
func (m *Monitor) RecordTransformOverhead(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transformOverheadMS = ms
}

// FPS returns the rolling FPS estimate (1000 / average frame delta), or the
// configured target before any sample arrives.
func (m *Monitor) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fpsLocked()
}

func (m *Monitor) fpsLocked() float64 {
	if m.filled == 0 {
		return m.cfg.TargetFPS
	}
	var sum float64
	for i := 0; i < m.filled; i++ {
		sum += m.deltas[i]
	}
	avg := sum / float64(m.filled)
	if avg <= 0 {
		return m.cfg.TargetFPS
	}
	return 1000 / avg
}

// Degraded reports whether the rolling FPS estimate has fallen below the
// degradation threshold.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fpsLocked() < m.cfg.DegradedFPSThreshold
}

// DurationScale returns the factor the orchestrator applies to nominal
// movement durations: 1.0 normally, the configured degraded scale while the
// monitor signals degradation or has been optimized.
func (m *Monitor) DurationScale() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.optimized || m.fpsLocked() < m.cfg.DegradedFPSThreshold {
		return m.cfg.DegradedDurationScale
	}
	return 1.0
}

// AccelerationHintsEnabled reports whether presentation layers should keep
// GPU acceleration hints on. Suppressed under sustained load.
func (m *Monitor) AccelerationHintsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.suppressGPU && !m.optimized
}

// OpStarted increments the active-operation count and returns the new value.
func (m *Monitor) OpStarted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeOps++
	return m.activeOps
}

// OpFinished decrements the active-operation count. Never goes below zero.
func (m *Monitor) OpFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeOps > 0 {
		m.activeOps--
	}
}

// ActiveOperations returns the current in-flight operation count.
func (m *Monitor) ActiveOperations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeOps
}

// Optimize applies the deliberate throttle: marks the monitor optimized,
// suppresses acceleration hints, and decrements the active-operation count
// by exactly one (floored at zero). It is not a reset - the rolling window
// and counters are left intact.
func (m *Monitor) Optimize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optimized = true
	m.suppressGPU = true
	if m.activeOps > 0 {
		m.activeOps--
	}
	m.logger.Info("performance optimization applied",
		"fps", m.fpsLocked(),
		"active_operations", m.activeOps,
	)
}

// Reset clears the rolling window, counters, and the optimized flag. Used
// between sessions and by tests.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = make([]float64, m.cfg.WindowSize)
	m.idx = 0
	m.filled = 0
	m.dropped = 0
	m.optimized = false
	m.suppressGPU = false
	m.movementCount = 0
	m.movementTotal = 0
	m.transformOverheadMS = 0
}

// Snapshot returns the current aggregate metrics. Memory sampling is
// best-effort: a host without memory introspection reports 0, with a single
// diagnostic the first time it fails.
func (m *Monitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avgMovement float64
	if m.movementCount > 0 {
		avgMovement = m.movementTotal / float64(m.movementCount)
	}

	return Metrics{
		CanvasRenderFPS:       m.fpsLocked(),
		TransformOverheadMS:   m.transformOverheadMS,
		CanvasMemoryMB:        m.memoryMBLocked(),
		ActiveOperations:      m.activeOps,
		IsOptimized:           m.optimized,
		AverageMovementTimeMS: avgMovement,
		DroppedFrames:         m.dropped,
	}
}

func (m *Monitor) memoryMBLocked() float64 {
	if m.memUnavailable {
		return 0
	}
	mb, err := m.sampleMem()
	if err != nil {
		m.memUnavailable = true
		m.logger.Warn("memory introspection unavailable, reporting 0",
			"code", "MISSING_CAPABILITY",
			"error", err,
		)
		return 0
	}
	return mb
}

// processMemoryMB samples the current process RSS via gopsutil.
func processMemoryMB() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}
