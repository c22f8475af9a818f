// Package sections maps the closed set of content sections onto the spatial
// grid and resolves section identifiers to canvas positions.
//
// The section set is a compile-time-known enumeration. Lookup never fails
// hard: an unknown identifier resolves to a safe default position with a
// reported diagnostic, because navigation must survive any input.
package sections

import "github.com/roach88/viewfinder/internal/transform"

// ID identifies a content section on the canvas.
type ID string

// The closed section enumeration. Hero is the designated center anchor.
const (
	Hero      ID = "hero"
	Portfolio ID = "portfolio"
	Services  ID = "services"
	Process   ID = "process"
	About     ID = "about"
	Contact   ID = "contact"
)

// All lists every known section in registration order. Digit-key navigation
// (1..N) indexes into this slice.
var All = []ID{Hero, Portfolio, Services, Process, About, Contact}

// Valid reports whether id is a member of the closed section set.
func (id ID) Valid() bool {
	for _, s := range All {
		if s == id {
			return true
		}
	}
	return false
}

// GridCoord places a section on the fixed spatial grid, with optional
// pixel-level offsets from the cell origin.
type GridCoord struct {
	GridX   int     `json:"grid_x" yaml:"grid_x"`
	GridY   int     `json:"grid_y" yaml:"grid_y"`
	OffsetX float64 `json:"offset_x,omitempty" yaml:"offset_x,omitempty"`
	OffsetY float64 `json:"offset_y,omitempty" yaml:"offset_y,omitempty"`
}

// Metadata carries the presentation-facing description of a section. The
// engine itself only reads Title and Description (for announcements); the
// rest is passed through to callers.
type Metadata struct {
	Title          string `json:"title" yaml:"title"`
	Description    string `json:"description" yaml:"description"`
	CameraMetaphor string `json:"camera_metaphor" yaml:"camera_metaphor"`
	Priority       int    `json:"priority" yaml:"priority"`
}

// Entry binds a section to its grid cell, canvas position, and metadata.
type Entry struct {
	Section  ID                 `json:"section"`
	Coord    GridCoord          `json:"coord"`
	Position transform.Position `json:"position"`
	Metadata Metadata           `json:"metadata"`
}
