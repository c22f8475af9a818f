package sections

import (
	"errors"
	"fmt"

	"github.com/roach88/viewfinder/internal/transform"
)

// Grid geometry defaults. Sections sit on a 3x2 grid of cells; the hero
// section occupies the geometric center, which maps to the canvas origin.
const (
	DefaultGridColumns = 3
	DefaultGridRows    = 2
	DefaultCellWidth   = 1000.0
	DefaultCellHeight  = 800.0
)

// UnknownSectionError reports a lookup for an identifier outside the closed
// section set. The lookup still succeeds with a default entry; this error is
// the diagnostic channel, not a failure.
type UnknownSectionError struct {
	Section ID
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unknown section %q: resolved to default position", e.Section)
}

// IsUnknownSection reports whether err is (or wraps) an UnknownSectionError.
func IsUnknownSection(err error) bool {
	var use *UnknownSectionError
	return errors.As(err, &use)
}

// Registry is the read-only table binding sections to canvas positions.
// Construct once from static configuration (or a compiled layout spec) and
// share freely; Registry is immutable after construction.
type Registry struct {
	entries map[ID]Entry
	order   []ID
}

// NewRegistry builds a registry from the built-in default layout: hero at
// the grid center, remaining sections in registration order around it.
func NewRegistry() *Registry {
	return NewRegistryFromEntries(DefaultEntries())
}

// NewRegistryFromEntries builds a registry from explicit entries, e.g. the
// output of the layout compiler. Entries for identifiers outside the closed
// set are ignored; missing known sections get synthesized fallback entries
// so lookups stay total.
func NewRegistryFromEntries(entries []Entry) *Registry {
	r := &Registry{
		entries: make(map[ID]Entry, len(All)),
		order:   All,
	}
	for _, e := range entries {
		if e.Section.Valid() {
			r.entries[e.Section] = e
		}
	}
	for _, id := range All {
		if _, ok := r.entries[id]; !ok {
			r.entries[id] = fallbackEntry(id)
		}
	}
	return r
}

// DefaultEntries returns the static default layout.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Section:  Hero,
			Coord:    GridCoord{GridX: 1, GridY: 0},
			Position: transform.Position{X: 0, Y: 0, Scale: 1.0},
			Metadata: Metadata{
				Title:          "Hero",
				Description:    "The opening frame",
				CameraMetaphor: "establishing shot",
				Priority:       1,
			},
		},
		{
			Section:  Portfolio,
			Coord:    GridCoord{GridX: 0, GridY: 0},
			Position: transform.Position{X: -DefaultCellWidth, Y: 0, Scale: 1.0},
			Metadata: Metadata{
				Title:          "Portfolio",
				Description:    "Selected work and case studies",
				CameraMetaphor: "contact sheet",
				Priority:       2,
			},
		},
		{
			Section:  Services,
			Coord:    GridCoord{GridX: 2, GridY: 0},
			Position: transform.Position{X: DefaultCellWidth, Y: 0, Scale: 1.0},
			Metadata: Metadata{
				Title:          "Services",
				Description:    "What the studio offers",
				CameraMetaphor: "lens kit",
				Priority:       3,
			},
		},
		{
			Section:  Process,
			Coord:    GridCoord{GridX: 0, GridY: 1},
			Position: transform.Position{X: -DefaultCellWidth, Y: DefaultCellHeight, Scale: 1.0},
			Metadata: Metadata{
				Title:          "Process",
				Description:    "How a project unfolds",
				CameraMetaphor: "storyboard",
				Priority:       4,
			},
		},
		{
			Section:  About,
			Coord:    GridCoord{GridX: 1, GridY: 1},
			Position: transform.Position{X: 0, Y: DefaultCellHeight, Scale: 1.0},
			Metadata: Metadata{
				Title:          "About",
				Description:    "The people behind the camera",
				CameraMetaphor: "behind the scenes",
				Priority:       5,
			},
		},
		{
			Section:  Contact,
			Coord:    GridCoord{GridX: 2, GridY: 1},
			Position: transform.Position{X: DefaultCellWidth, Y: DefaultCellHeight, Scale: 1.0},
			Metadata: Metadata{
				Title:          "Contact",
				Description:    "Start a conversation",
				CameraMetaphor: "call sheet",
				Priority:       6,
			},
		},
	}
}

// Resolve returns the entry for a section. Unknown identifiers resolve to a
// synthesized default entry at the canvas origin plus an
// *UnknownSectionError diagnostic - navigation never crashes on bad input.
func (r *Registry) Resolve(id ID) (Entry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return fallbackEntry(id), &UnknownSectionError{Section: id}
}

// Position is a convenience wrapper around Resolve for callers that only
// need coordinates. The diagnostic, if any, is returned alongside.
func (r *Registry) Position(id ID) (transform.Position, error) {
	e, err := r.Resolve(id)
	return e.Position, err
}

// ByIndex returns the section at a zero-based registration index, for digit
// key navigation. ok is false for out-of-range indexes.
func (r *Registry) ByIndex(i int) (Entry, bool) {
	if i < 0 || i >= len(r.order) {
		return Entry{}, false
	}
	e := r.entries[r.order[i]]
	return e, true
}

// Len returns the number of registered sections.
func (r *Registry) Len() int {
	return len(r.order)
}

// MovementDuration computes the distance-based duration between two
// sections, with the 300-800ms clamp. Unknown sections contribute their
// fallback positions.
func (r *Registry) MovementDuration(from, to ID) float64 {
	a, _ := r.Position(from)
	b, _ := r.Position(to)
	return transform.MovementDuration(a, b)
}

// fallbackEntry synthesizes a safe entry for an unmapped identifier.
func fallbackEntry(id ID) Entry {
	return Entry{
		Section:  id,
		Position: transform.Position{X: 0, Y: 0, Scale: 1.0},
		Metadata: Metadata{
			Title:       string(id),
			Description: "Unmapped section",
		},
	}
}
