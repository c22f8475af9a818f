package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/transform"
)

// Validation error codes (E100-E199)
const (
	ErrLayoutNameEmpty     = "E100" // layout name required
	ErrLayoutNoSections    = "E101" // at least one section required
	ErrUnknownSectionID    = "E102" // section id outside the closed set
	ErrDuplicateSection    = "E103" // section declared twice
	ErrGridOutOfRange      = "E104" // grid cell outside columns x rows
	ErrDuplicateGridCell   = "E105" // two sections share a cell
	ErrInvalidGridShape    = "E106" // non-positive grid dimensions
	ErrInvalidScaleRange   = "E107" // minScale/maxScale window invalid
	ErrInvalidBoundsRange  = "E108" // min exceeds max on an axis
	ErrPositionOutOfBounds = "E109" // section position violates constraints
)

// ValidationError represents a layout validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled layout against schema rules. Returns all
// errors found (does not fail-fast).
func Validate(l *Layout) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(l.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "layout name is required and must be non-empty",
			Code:    ErrLayoutNameEmpty,
		})
	}

	if l.Grid.Columns <= 0 || l.Grid.Rows <= 0 || l.Grid.CellWidth <= 0 || l.Grid.CellHeight <= 0 {
		errs = append(errs, ValidationError{
			Field:   "grid",
			Message: fmt.Sprintf("grid dimensions must be positive, got %dx%d cells of %.0fx%.0f", l.Grid.Columns, l.Grid.Rows, l.Grid.CellWidth, l.Grid.CellHeight),
			Code:    ErrInvalidGridShape,
		})
	}

	errs = append(errs, validateConstraints(l.Constraints)...)

	if len(l.Entries) == 0 {
		errs = append(errs, ValidationError{
			Field:   "sections",
			Message: "at least one section is required",
			Code:    ErrLayoutNoSections,
		})
	}

	seen := make(map[sections.ID]bool)
	cells := make(map[[2]int]sections.ID)
	for i, entry := range l.Entries {
		field := fmt.Sprintf("sections[%d]", i)

		if !entry.Section.Valid() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown section identifier %q", entry.Section),
				Code:    ErrUnknownSectionID,
			})
		}
		if seen[entry.Section] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("section %q declared more than once", entry.Section),
				Code:    ErrDuplicateSection,
			})
		}
		seen[entry.Section] = true

		if entry.Coord.GridX < 0 || entry.Coord.GridX >= l.Grid.Columns ||
			entry.Coord.GridY < 0 || entry.Coord.GridY >= l.Grid.Rows {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("grid cell (%d,%d) outside %dx%d grid", entry.Coord.GridX, entry.Coord.GridY, l.Grid.Columns, l.Grid.Rows),
				Code:    ErrGridOutOfRange,
			})
		}

		cell := [2]int{entry.Coord.GridX, entry.Coord.GridY}
		if other, occupied := cells[cell]; occupied {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("grid cell (%d,%d) already occupied by %q", cell[0], cell[1], other),
				Code:    ErrDuplicateGridCell,
			})
		} else {
			cells[cell] = entry.Section
		}

		if transform.Validate(entry.Position, l.Constraints) != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("position {%.1f, %.1f, %.2f} violates viewport constraints", entry.Position.X, entry.Position.Y, entry.Position.Scale),
				Code:    ErrPositionOutOfBounds,
			})
		}
	}

	return errs
}

func validateConstraints(c transform.Constraints) []ValidationError {
	var errs []ValidationError
	if c.MinScale <= 0 || c.MinScale >= c.MaxScale {
		errs = append(errs, ValidationError{
			Field:   "constraints",
			Message: fmt.Sprintf("scale window [%v, %v] is invalid", c.MinScale, c.MaxScale),
			Code:    ErrInvalidScaleRange,
		})
	}
	if c.MinX > c.MaxX || c.MinY > c.MaxY {
		errs = append(errs, ValidationError{
			Field:   "constraints",
			Message: "axis minimum exceeds maximum",
			Code:    ErrInvalidBoundsRange,
		})
	}
	return errs
}
