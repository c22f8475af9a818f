// Package state holds the authoritative mutable record of the canvas
// session: position, active section, interaction and accessibility flags,
// performance metrics, and the bounded transition history.
//
// The store is the only mutable shared resource in the engine (spec of the
// single-writer model lives with the orchestrator). Every other component
// either dispatches a named action or reads an independently-owned snapshot;
// no component holds a second mutable copy.
package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/perf"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/transform"
)

// HistoryCap bounds the transition history: the most recent 100 entries are
// kept, oldest evicted first.
const HistoryCap = 100

// TouchState captures an in-flight pinch/drag gesture.
type TouchState struct {
	InitialDistance float64            `json:"initial_distance"`
	InitialPosition transform.Position `json:"initial_position"`
}

// InteractionState holds ephemeral gesture flags, reset on gesture end.
type InteractionState struct {
	IsPanning bool       `json:"is_panning"`
	IsZooming bool       `json:"is_zooming"`
	Touch     TouchState `json:"touch"`
}

// AccessibilityState holds assistive-navigation flags.
type AccessibilityState struct {
	KeyboardSpatialNav bool        `json:"keyboard_spatial_nav"`
	SpatialFocus       sections.ID `json:"spatial_focus,omitempty"`
	ReducedMotion      bool        `json:"reduced_motion"`
}

// Transition is one entry of the bounded history log.
type Transition struct {
	From     sections.ID   `json:"from"`
	To       sections.ID   `json:"to"`
	Movement movement.Kind `json:"movement"`
	Duration float64       `json:"duration_ms"`
	Success  bool          `json:"success"`
	// Timestamp is assigned by the store at append time, never by callers.
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a structurally-equal but independently-owned copy of the
// store. Mutating a snapshot never affects the store.
type Snapshot struct {
	Position        transform.Position    `json:"position"`
	TargetPosition  transform.Position    `json:"target_position"`
	ActiveSection   sections.ID           `json:"active_section"`
	PreviousSection sections.ID           `json:"previous_section,omitempty"`
	Layout          string                `json:"layout"`
	Interaction     InteractionState      `json:"interaction"`
	Accessibility   AccessibilityState    `json:"accessibility"`
	Metrics         perf.Metrics          `json:"metrics"`
	History         []Transition          `json:"history"`
	Constraints     transform.Constraints `json:"constraints"`
}

// Store is the canvas state container. All mutation goes through named
// action methods; direct field access is impossible from outside the
// package.
//
// Thread-safety: a mutex serializes access. Under the engine's
// single-threaded tick model it is uncontended; it exists for the harness
// and CLI boundaries.
type Store struct {
	mu sync.Mutex

	position        transform.Position
	targetPosition  transform.Position
	activeSection   sections.ID
	previousSection sections.ID
	layout          string

	interaction   InteractionState
	accessibility AccessibilityState
	metrics       perf.Metrics

	history []Transition

	constraints transform.Constraints
	now         func() time.Time
	onSection   SectionListener
	logger      *slog.Logger
}

// SectionListener observes locally-committed active-section changes, so a
// host can mirror them into its global navigation state. Externally merged
// changes (MergeExternal) never fire it: echoing the host's own signal back
// would loop.
type SectionListener func(previous, next sections.ID)

// New creates a store with the given viewport constraints, positioned at the
// hero default (origin, scale 1).
func New(constraints transform.Constraints, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		position:       transform.Position{X: 0, Y: 0, Scale: 1.0},
		targetPosition: transform.Position{X: 0, Y: 0, Scale: 1.0},
		activeSection:  sections.Hero,
		layout:         "spatial",
		interaction:    InteractionState{},
		accessibility:  AccessibilityState{},
		constraints:    constraints,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock swaps the timestamp source, for deterministic tests and replay.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpdatePosition commits a new canvas position. The position is clamped to
// the viewport constraints before commit, so the store can never hold an
// invalid position.
func (s *Store) UpdatePosition(pos transform.Position) transform.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = transform.Clamp(pos, s.constraints)
	return s.position
}

// SetTargetPosition records where the camera is heading. Clamped like
// UpdatePosition.
func (s *Store) SetTargetPosition(pos transform.Position) transform.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetPosition = transform.Clamp(pos, s.constraints)
	return s.targetPosition
}

// OnSectionChange registers the outward section-change hook. One listener;
// nil unregisters. The listener may run on the engine's tick path, so it
// must be quick and must not call back into the engine synchronously.
func (s *Store) OnSectionChange(fn SectionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSection = fn
}

// SetActiveSection switches the active section, recording the prior value
// into previousSection first. One level of history, not a stack.
func (s *Store) SetActiveSection(next sections.ID) {
	s.mu.Lock()
	if next == s.activeSection {
		s.mu.Unlock()
		return
	}
	prev := s.activeSection
	s.previousSection = prev
	s.activeSection = next
	fn := s.onSection
	s.mu.Unlock()

	// Fires outside the mutex so the listener may read the store.
	if fn != nil {
		fn(prev, next)
	}
}

// SetLayout records the presentation layout identifier.
func (s *Store) SetLayout(layout string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = layout
}

// SetPanningState toggles the pan gesture flag.
func (s *Store) SetPanningState(panning bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction.IsPanning = panning
	if !panning {
		s.interaction.Touch = TouchState{}
	}
}

// SetZoomingState toggles the zoom gesture flag.
func (s *Store) SetZoomingState(zooming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction.IsZooming = zooming
	if !zooming {
		s.interaction.Touch = TouchState{}
	}
}

// UpdateTouchState records the initial geometry of a touch gesture.
func (s *Store) UpdateTouchState(ts TouchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interaction.Touch = ts
}

// SetKeyboardSpatialNav toggles keyboard spatial navigation.
func (s *Store) SetKeyboardSpatialNav(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessibility.KeyboardSpatialNav = enabled
}

// SetSpatialFocus moves the assistive spatial focus. Empty clears it.
func (s *Store) SetSpatialFocus(id sections.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessibility.SpatialFocus = id
}

// SetReducedMotion records the reduced-motion preference.
func (s *Store) SetReducedMotion(reduced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessibility.ReducedMotion = reduced
}

// TrackTransition appends a history entry with a store-assigned timestamp
// and enforces the FIFO cap: once HistoryCap entries exist, the oldest is
// evicted for each append.
func (s *Store) TrackTransition(entry Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Timestamp = s.now()
	s.history = append(s.history, entry)
	if len(s.history) > HistoryCap {
		// Shift rather than reslice so the backing array never pins
		// evicted entries
		copy(s.history, s.history[len(s.history)-HistoryCap:])
		s.history = s.history[:HistoryCap]
	}
}

// UpdatePerformanceMetrics replaces the stored metrics snapshot.
func (s *Store) UpdatePerformanceMetrics(m perf.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// OptimizePerformance applies the deliberate throttle to the stored
// metrics: isOptimized set, activeOperations decremented by exactly one
// (floored at zero).
func (s *Store) OptimizePerformance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.IsOptimized = true
	if s.metrics.ActiveOperations > 0 {
		s.metrics.ActiveOperations--
	}
}

// ResetToDefaults restores the initial session state. Constraints and the
// clock survive the reset.
func (s *Store) ResetToDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = transform.Position{X: 0, Y: 0, Scale: 1.0}
	s.targetPosition = s.position
	s.activeSection = sections.Hero
	s.previousSection = ""
	s.layout = "spatial"
	s.interaction = InteractionState{}
	s.accessibility = AccessibilityState{}
	s.metrics = perf.Metrics{}
	s.history = nil
}

// Position returns the current committed position.
func (s *Store) Position() transform.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// ActiveSection returns the current active section.
func (s *Store) ActiveSection() sections.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSection
}

// PreviousSection returns the one-level section history.
func (s *Store) PreviousSection() sections.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousSection
}

// Constraints returns the session's viewport constraints.
func (s *Store) Constraints() transform.Constraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraints
}

// GetStateSnapshot returns an independently-owned deep copy of the store.
func (s *Store) GetStateSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	historyCopy := make([]Transition, len(s.history))
	copy(historyCopy, s.history)

	return Snapshot{
		Position:        s.position,
		TargetPosition:  s.targetPosition,
		ActiveSection:   s.activeSection,
		PreviousSection: s.previousSection,
		Layout:          s.layout,
		Interaction:     s.interaction,
		Accessibility:   s.accessibility,
		Metrics:         s.metrics,
		History:         historyCopy,
		Constraints:     s.constraints,
	}
}

// ValidationResult is the outcome of a non-throwing self-check.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateState runs a side-effect-free consistency check: position within
// bounds, known active section, scale in range. Usable by tests and callers
// at any time.
func (s *Store) ValidateState() ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []string
	if err := transform.Validate(s.position, s.constraints); err != nil {
		errs = append(errs, fmt.Sprintf("position: %v", err))
	}
	if !s.activeSection.Valid() {
		errs = append(errs, fmt.Sprintf("active section %q is not in the registry", s.activeSection))
	}
	if len(s.history) > HistoryCap {
		errs = append(errs, fmt.Sprintf("history length %d exceeds cap %d", len(s.history), HistoryCap))
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
