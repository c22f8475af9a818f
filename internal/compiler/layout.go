// Package compiler turns declarative CUE layout specs into section registry
// entries. A layout spec names the grid shape, the viewport constraints, and
// each section's grid cell plus metadata; canvas positions derive from the
// grid unless given explicitly.
package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/transform"
)

// Grid describes the spatial grid shape of a layout.
type Grid struct {
	Columns    int
	Rows       int
	CellWidth  float64
	CellHeight float64
}

// Layout is a compiled layout spec: a named grid of sections plus the
// viewport constraints that bound camera movement within it.
type Layout struct {
	Name        string
	Grid        Grid
	Constraints transform.Constraints
	Entries     []sections.Entry
}

// Registry materializes the layout into a section registry.
func (l *Layout) Registry() *sections.Registry {
	return sections.NewRegistryFromEntries(l.Entries)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile reads a CUE file and compiles the layout under its "layout"
// field.
func CompileFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	layoutVal := v.LookupPath(cue.ParsePath("layout"))
	if !layoutVal.Exists() {
		return nil, &CompileError{
			Field:   "layout",
			Message: "top-level layout field is required",
			Pos:     v.Pos(),
		}
	}
	return CompileLayout(layoutVal)
}

// CompileLayout parses a CUE value into a Layout. Uses the CUE SDK's Go API
// directly (not a CLI subprocess).
//
// The CUE value should be the layout struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`layout: { name: "studio", ... }`)
//	l, err := CompileLayout(v.LookupPath(cue.ParsePath("layout")))
func CompileLayout(v cue.Value) (*Layout, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	layout := &Layout{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	layout.Name = name

	layout.Grid, err = parseGrid(v)
	if err != nil {
		return nil, err
	}

	layout.Constraints, err = parseConstraints(v)
	if err != nil {
		return nil, err
	}

	layout.Entries, err = parseSections(v, layout.Grid)
	if err != nil {
		return nil, err
	}
	if len(layout.Entries) == 0 {
		return nil, &CompileError{
			Field:   "sections",
			Message: "at least one section is required",
			Pos:     v.Pos(),
		}
	}

	return layout, nil
}

// parseGrid reads the grid shape, defaulting to the built-in 3x2 grid when
// absent.
func parseGrid(v cue.Value) (Grid, error) {
	grid := Grid{
		Columns:    sections.DefaultGridColumns,
		Rows:       sections.DefaultGridRows,
		CellWidth:  sections.DefaultCellWidth,
		CellHeight: sections.DefaultCellHeight,
	}
	gridVal := v.LookupPath(cue.ParsePath("grid"))
	if !gridVal.Exists() {
		return grid, nil
	}

	if err := readInt(gridVal, "columns", &grid.Columns); err != nil {
		return grid, err
	}
	if err := readInt(gridVal, "rows", &grid.Rows); err != nil {
		return grid, err
	}
	if err := readFloat(gridVal, "cellWidth", &grid.CellWidth); err != nil {
		return grid, err
	}
	if err := readFloat(gridVal, "cellHeight", &grid.CellHeight); err != nil {
		return grid, err
	}
	return grid, nil
}

// parseConstraints reads viewport constraints, defaulting each absent field
// to the built-in viewport.
func parseConstraints(v cue.Value) (transform.Constraints, error) {
	c := transform.DefaultConstraints()
	constraintsVal := v.LookupPath(cue.ParsePath("constraints"))
	if !constraintsVal.Exists() {
		return c, nil
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"minX", &c.MinX},
		{"maxX", &c.MaxX},
		{"minY", &c.MinY},
		{"maxY", &c.MaxY},
		{"minScale", &c.MinScale},
		{"maxScale", &c.MaxScale},
		{"padding", &c.Padding},
	}
	for _, f := range fields {
		if err := readFloat(constraintsVal, f.name, f.dst); err != nil {
			return c, err
		}
	}
	return c, nil
}

// parseSections reads the sections map. Each label is a section identifier;
// positions derive from the grid cell unless an explicit position is given.
func parseSections(v cue.Value, grid Grid) ([]sections.Entry, error) {
	sectionsVal := v.LookupPath(cue.ParsePath("sections"))
	if !sectionsVal.Exists() {
		return nil, nil
	}

	iter, err := sectionsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entries []sections.Entry
	for iter.Next() {
		entry, err := parseSection(sections.ID(iter.Label()), iter.Value(), grid)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseSection(id sections.ID, v cue.Value, grid Grid) (sections.Entry, error) {
	entry := sections.Entry{Section: id}

	gridXVal := v.LookupPath(cue.ParsePath("gridX"))
	gridYVal := v.LookupPath(cue.ParsePath("gridY"))
	if !gridXVal.Exists() || !gridYVal.Exists() {
		return entry, &CompileError{
			Field:   fmt.Sprintf("sections.%s", id),
			Message: "gridX and gridY are required",
			Pos:     v.Pos(),
		}
	}
	if err := readInt(v, "gridX", &entry.Coord.GridX); err != nil {
		return entry, err
	}
	if err := readInt(v, "gridY", &entry.Coord.GridY); err != nil {
		return entry, err
	}
	if err := readFloat(v, "offsetX", &entry.Coord.OffsetX); err != nil {
		return entry, err
	}
	if err := readFloat(v, "offsetY", &entry.Coord.OffsetY); err != nil {
		return entry, err
	}

	entry.Position = cellPosition(entry.Coord, grid)
	posVal := v.LookupPath(cue.ParsePath("position"))
	if posVal.Exists() {
		if err := readFloat(posVal, "x", &entry.Position.X); err != nil {
			return entry, err
		}
		if err := readFloat(posVal, "y", &entry.Position.Y); err != nil {
			return entry, err
		}
		if err := readFloat(posVal, "scale", &entry.Position.Scale); err != nil {
			return entry, err
		}
	}

	if err := readString(v, "title", &entry.Metadata.Title); err != nil {
		return entry, err
	}
	if err := readString(v, "description", &entry.Metadata.Description); err != nil {
		return entry, err
	}
	if err := readString(v, "cameraMetaphor", &entry.Metadata.CameraMetaphor); err != nil {
		return entry, err
	}
	if err := readInt(v, "priority", &entry.Metadata.Priority); err != nil {
		return entry, err
	}
	if entry.Metadata.Title == "" {
		entry.Metadata.Title = string(id)
	}

	return entry, nil
}

// cellPosition derives the canvas position of a grid cell. The grid's
// center column maps to x=0 and the top row to y=0, matching the built-in
// layout's placement of the hero cell at the origin.
func cellPosition(coord sections.GridCoord, grid Grid) transform.Position {
	centerCol := grid.Columns / 2
	return transform.Position{
		X:     float64(coord.GridX-centerCol)*grid.CellWidth + coord.OffsetX,
		Y:     float64(coord.GridY)*grid.CellHeight + coord.OffsetY,
		Scale: 1.0,
	}
}

func readInt(v cue.Value, field string, dst *int) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = int(n)
	return nil
}

func readFloat(v cue.Value, field string, dst *float64) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	f, err := fv.Float64()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = f
	return nil
}

func readString(v cue.Value, field string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = s
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
