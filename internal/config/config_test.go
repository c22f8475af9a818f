package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.KeyboardSpatialNav)
	assert.Equal(t, 100.0, opts.MoveDistance)
	assert.Equal(t, 1.2, opts.ZoomFactor)
	assert.Equal(t, 100, opts.MaxResponseTime)
	require.NoError(t, opts.Validate())
}

func TestParse_OverridesAndDefaults(t *testing.T) {
	opts, err := Parse([]byte(`
moveDistance: 250
enableSpatialContext: true
`))
	require.NoError(t, err)
	assert.Equal(t, 250.0, opts.MoveDistance)
	assert.True(t, opts.EnableSpatialContext)
	// Absent fields keep their defaults.
	assert.Equal(t, 1.2, opts.ZoomFactor)
	assert.Equal(t, 100, opts.MaxResponseTime)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte(`
moveDistence: 250
`))
	require.Error(t, err, "typos must fail, not silently default")
}

func TestParse_RangeValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative move distance", "moveDistance: -5"},
		{"zoom factor at one", "zoomFactor: 1.0"},
		{"zero response budget", "maxResponseTime: 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keyboardSpatialNav: true
moveDistance: 50
zoomFactor: 1.5
enableAnnouncements: false
maxResponseTime: 200
`), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50.0, opts.MoveDistance)
	assert.Equal(t, 1.5, opts.ZoomFactor)
	assert.False(t, opts.EnableAnnouncements)
	assert.Equal(t, 200, opts.MaxResponseTime)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
