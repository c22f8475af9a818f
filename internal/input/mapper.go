// Package input maps keyboard commands onto canvas navigation: relative
// pans, zoom steps, origin reset, and digit-key section jumps. Every
// resulting position passes through the viewport clamp before commit, and
// each handled key optionally produces a screen-reader announcement.
package input

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/viewfinder/internal/config"
	"github.com/roach88/viewfinder/internal/engine"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/state"
	"github.com/roach88/viewfinder/internal/transform"
)

// Direction names a relative pan axis step.
type Direction string

// Pan directions.
const (
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Navigator starts section-jump movements. *engine.Engine implements it;
// tests substitute a recorder.
type Navigator interface {
	NavigateToSection(id sections.ID, onComplete func(engine.Completion)) (string, error)
}

// Result reports how a key event was handled. Consumed means the host
// should suppress the browser-default behavior for the key even if no
// state changed (a disabled mapper still consumes recognized keys so
// arrows never scroll the page underneath the canvas).
type Result struct {
	Consumed     bool
	Announcement string
}

// Mapper translates key identifiers into store commits and engine
// movements, obeying the session options.
type Mapper struct {
	mu sync.Mutex

	opts     config.Options
	store    *state.Store
	registry *sections.Registry
	nav      Navigator
	logger   *slog.Logger

	announcer *announcer
	region    LiveRegion
	newRegion LiveRegionFactory
	now       func() time.Time
}

// NewMapper builds a mapper. The factory supplies the live-region sink; it
// is only invoked while announcements are enabled. A nil factory disables
// announcements regardless of options.
func NewMapper(opts config.Options, store *state.Store, registry *sections.Registry, nav Navigator, factory LiveRegionFactory, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{
		opts:      opts,
		store:     store,
		registry:  registry,
		nav:       nav,
		newRegion: factory,
		logger:    logger,
		now:       time.Now,
	}
	if opts.EnableAnnouncements {
		m.enableAnnouncementsLocked()
	}
	store.SetKeyboardSpatialNav(opts.KeyboardSpatialNav)
	return m
}

// SetClock substitutes the time source used for the response budget.
func (m *Mapper) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetAnnouncementsEnabled toggles the announcement pipeline at runtime.
// Enabling creates the live-region sink; disabling closes and drops it.
func (m *Mapper) SetAnnouncementsEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		m.enableAnnouncementsLocked()
		return
	}
	if m.region != nil {
		m.region.Close()
		m.region = nil
	}
	m.announcer = nil
}

// AnnouncementsActive reports whether a live-region sink currently exists.
func (m *Mapper) AnnouncementsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region != nil
}

// Close tears down the live-region registration.
func (m *Mapper) Close() {
	m.SetAnnouncementsEnabled(false)
}

func (m *Mapper) enableAnnouncementsLocked() {
	if m.region != nil || m.newRegion == nil {
		return
	}
	m.region = m.newRegion()
	m.announcer = newAnnouncer(m.opts.EnableSpatialContext)
}

// HandleKey processes one key event end to end. Unrecognized keys return
// an unconsumed Result; recognized keys are always consumed, even when
// navigation is disabled or the key maps to nothing (out-of-range digits).
func (m *Mapper) HandleKey(key string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()

	action, recognized := classify(key)
	if !recognized {
		return Result{}
	}
	if !m.opts.KeyboardSpatialNav {
		return Result{Consumed: true}
	}

	announcement := m.applyLocked(action)
	m.checkBudgetLocked(key, start)

	if announcement != "" && m.region != nil {
		m.region.Announce(announcement)
	}
	return Result{Consumed: true, Announcement: announcement}
}

// keyAction is a classified key event.
type keyAction struct {
	pan     Direction
	zoomIn  bool
	zoomOut bool
	reset   bool
	digit   int // 1-based section index, 0 when not a digit key
}

// classify maps a key identifier to its action. Layout follows the
// camera metaphor: arrows and WASD pan, plus/minus zoom, 0 and Home
// reset, digits jump.
func classify(key string) (keyAction, bool) {
	switch key {
	case "ArrowLeft", "a", "A":
		return keyAction{pan: Left}, true
	case "ArrowRight", "d", "D":
		return keyAction{pan: Right}, true
	case "ArrowUp", "w", "W":
		return keyAction{pan: Up}, true
	case "ArrowDown", "s", "S":
		return keyAction{pan: Down}, true
	case "+", "=":
		return keyAction{zoomIn: true}, true
	case "-", "_":
		return keyAction{zoomOut: true}, true
	case "0", "Home":
		return keyAction{reset: true}, true
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return keyAction{digit: int(key[0] - '0')}, true
	}
	return keyAction{}, false
}

// applyLocked executes a classified action and returns the announcement
// text, empty when nothing should be announced.
func (m *Mapper) applyLocked(action keyAction) string {
	switch {
	case action.pan != "":
		return m.panLocked(action.pan)
	case action.zoomIn:
		return m.zoomLocked(true)
	case action.zoomOut:
		return m.zoomLocked(false)
	case action.reset:
		m.store.UpdatePosition(transform.Position{X: 0, Y: 0, Scale: 1})
		if m.announcer == nil {
			return ""
		}
		return m.announcer.reset()
	case action.digit > 0:
		return m.jumpLocked(action.digit)
	}
	return ""
}

func (m *Mapper) panLocked(dir Direction) string {
	pos := m.store.Position()
	switch dir {
	case Left:
		pos.X -= m.opts.MoveDistance
	case Right:
		pos.X += m.opts.MoveDistance
	case Up:
		pos.Y -= m.opts.MoveDistance
	case Down:
		pos.Y += m.opts.MoveDistance
	}
	m.store.UpdatePosition(pos) // clamps per axis
	if m.announcer == nil {
		return ""
	}
	return m.announcer.moved(dir)
}

func (m *Mapper) zoomLocked(in bool) string {
	pos := m.store.Position()
	if in {
		pos.Scale *= m.opts.ZoomFactor
	} else {
		pos.Scale /= m.opts.ZoomFactor
	}
	committed := m.store.UpdatePosition(pos)
	if m.announcer == nil {
		return ""
	}
	return m.announcer.zoomed(in, committed.Scale)
}

// jumpLocked starts a section-jump movement for digit n. Digits beyond the
// registered section count are swallowed: no movement, no announcement.
func (m *Mapper) jumpLocked(n int) string {
	entry, ok := m.registry.ByIndex(n - 1)
	if !ok {
		return ""
	}
	if _, err := m.nav.NavigateToSection(entry.Section, nil); err != nil {
		m.logger.Warn("section jump not started", "section", entry.Section, "error", err)
		return ""
	}
	if m.announcer == nil {
		return ""
	}
	return m.announcer.navigated(entry)
}

// checkBudgetLocked logs a soft warning when key handling overruns the
// configured response budget. Never fails the command.
func (m *Mapper) checkBudgetLocked(key string, start time.Time) {
	elapsed := m.now().Sub(start)
	budget := time.Duration(m.opts.MaxResponseTime) * time.Millisecond
	if elapsed > budget {
		m.logger.Warn("key handling exceeded response budget",
			"key", key,
			"elapsed_ms", float64(elapsed)/float64(time.Millisecond),
			"budget_ms", m.opts.MaxResponseTime,
		)
	}
}
