package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/transform"
)

const defaultLayoutCUE = `
layout: {
	name: "studio"
	grid: {
		columns:    3
		rows:       2
		cellWidth:  1000
		cellHeight: 800
	}
	sections: {
		hero: {
			gridX:       1
			gridY:       0
			title:       "Hero"
			description: "The opening frame"
			priority:    1
		}
		portfolio: {
			gridX:       0
			gridY:       0
			title:       "Portfolio"
			description: "Selected work and case studies"
			priority:    2
		}
		services: {
			gridX:       2
			gridY:       0
			title:       "Services"
			description: "What the studio offers"
			priority:    3
		}
		process: {
			gridX:       0
			gridY:       1
			title:       "Process"
			description: "How a project unfolds"
			priority:    4
		}
		about: {
			gridX:       1
			gridY:       1
			title:       "About"
			description: "The people behind the camera"
			priority:    5
		}
		contact: {
			gridX:       2
			gridY:       1
			title:       "Contact"
			description: "Start a conversation"
			priority:    6
		}
	}
}
`

func compileString(t *testing.T, src string) (*Layout, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileLayout(v.LookupPath(cue.ParsePath("layout")))
}

func TestCompileLayout_MatchesBuiltinPositions(t *testing.T) {
	layout, err := compileString(t, defaultLayoutCUE)
	require.NoError(t, err)
	assert.Equal(t, "studio", layout.Name)
	require.Len(t, layout.Entries, 6)

	// The compiled registry resolves every section to the same position as
	// the built-in defaults.
	compiled := layout.Registry()
	builtin := sections.NewRegistry()
	for _, id := range sections.All {
		want, err := builtin.Position(id)
		require.NoError(t, err)
		got, err := compiled.Position(id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "section %s", id)
	}
}

func TestCompileLayout_ExplicitPositionOverridesGrid(t *testing.T) {
	layout, err := compileString(t, `
layout: {
	name: "custom"
	sections: {
		hero: {
			gridX: 1
			gridY: 0
			position: {x: 123, y: -456, scale: 1.5}
		}
	}
}
`)
	require.NoError(t, err)
	require.Len(t, layout.Entries, 1)
	assert.Equal(t, transform.Position{X: 123, Y: -456, Scale: 1.5}, layout.Entries[0].Position)
}

func TestCompileLayout_OffsetsShiftCellPosition(t *testing.T) {
	layout, err := compileString(t, `
layout: {
	name: "offset"
	sections: {
		services: {
			gridX:   2
			gridY:   1
			offsetX: 50
			offsetY: -25
		}
	}
}
`)
	require.NoError(t, err)
	got := layout.Entries[0].Position
	assert.Equal(t, 1050.0, got.X)
	assert.Equal(t, 775.0, got.Y)
}

func TestCompileLayout_MissingNameFails(t *testing.T) {
	_, err := compileString(t, `
layout: {
	sections: {hero: {gridX: 1, gridY: 0}}
}
`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "name", ce.Field)
}

func TestCompileLayout_MissingGridCoordsFail(t *testing.T) {
	_, err := compileString(t, `
layout: {
	name: "broken"
	sections: {hero: {title: "Hero"}}
}
`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Field, "hero")
}

func TestCompileLayout_EmptySectionsFail(t *testing.T) {
	_, err := compileString(t, `
layout: {
	name: "empty"
	sections: {}
}
`)
	require.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.cue")
	require.NoError(t, os.WriteFile(path, []byte(defaultLayoutCUE), 0o644))

	layout, err := CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, "studio", layout.Name)
	assert.Len(t, layout.Entries, 6)
}

func TestCompileFile_SyntaxErrorHasPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("layout: {\nname: \n}"), 0o644))

	_, err := CompileFile(path)
	require.Error(t, err)
}

func TestValidate_CleanLayout(t *testing.T) {
	layout, err := compileString(t, defaultLayoutCUE)
	require.NoError(t, err)
	assert.Empty(t, Validate(layout))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	layout := &Layout{
		Name: " ",
		Grid: Grid{Columns: 3, Rows: 2, CellWidth: 1000, CellHeight: 800},
		Constraints: transform.Constraints{
			MinX: -2000, MaxX: 2000, MinY: -2000, MaxY: 2000,
			MinScale: 0.5, MaxScale: 3.0,
		},
		Entries: []sections.Entry{
			{Section: "warehouse", Coord: sections.GridCoord{GridX: 5, GridY: 0}, Position: transform.Position{Scale: 1}},
			{Section: sections.Hero, Coord: sections.GridCoord{GridX: 1, GridY: 0}, Position: transform.Position{Scale: 1}},
			{Section: sections.Hero, Coord: sections.GridCoord{GridX: 1, GridY: 0}, Position: transform.Position{Scale: 1}},
		},
	}

	errs := Validate(layout)
	codes := make(map[string]bool)
	for _, e := range errs {
		codes[e.Code] = true
	}
	assert.True(t, codes[ErrLayoutNameEmpty])
	assert.True(t, codes[ErrUnknownSectionID])
	assert.True(t, codes[ErrGridOutOfRange])
	assert.True(t, codes[ErrDuplicateSection])
	assert.True(t, codes[ErrDuplicateGridCell])
}

func TestValidate_ScaleWindowAndBounds(t *testing.T) {
	layout := &Layout{
		Name: "bad-constraints",
		Grid: Grid{Columns: 1, Rows: 1, CellWidth: 100, CellHeight: 100},
		Constraints: transform.Constraints{
			MinX: 100, MaxX: -100,
			MinScale: 2, MaxScale: 1,
		},
		Entries: []sections.Entry{
			{Section: sections.Hero, Position: transform.Position{Scale: 1}},
		},
	}

	errs := Validate(layout)
	codes := make(map[string]bool)
	for _, e := range errs {
		codes[e.Code] = true
	}
	assert.True(t, codes[ErrInvalidScaleRange])
	assert.True(t, codes[ErrInvalidBoundsRange])
}

func TestValidate_PositionOutsideConstraints(t *testing.T) {
	layout := &Layout{
		Name: "out-of-bounds",
		Grid: Grid{Columns: 3, Rows: 2, CellWidth: 5000, CellHeight: 800},
		Constraints: transform.Constraints{
			MinX: -2000, MaxX: 2000, MinY: -2000, MaxY: 2000,
			MinScale: 0.5, MaxScale: 3.0,
		},
		Entries: []sections.Entry{
			{Section: sections.Portfolio, Coord: sections.GridCoord{GridX: 0, GridY: 0}, Position: transform.Position{X: -5000, Scale: 1}},
		},
	}

	errs := Validate(layout)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrPositionOutOfBounds, errs[0].Code)
}
