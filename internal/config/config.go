// Package config defines the runtime options surface. Options are supplied
// once at initialization and immutable for the session; files decode
// strictly so typos fail loudly instead of silently defaulting.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default option values.
const (
	DefaultMoveDistance    = 100.0
	DefaultZoomFactor      = 1.2
	DefaultMaxResponseTime = 100 // ms
)

// Options configures keyboard navigation and announcements.
type Options struct {
	// KeyboardSpatialNav enables key handling. When false every key event
	// is swallowed without touching state.
	KeyboardSpatialNav bool `yaml:"keyboardSpatialNav"`

	// MoveDistance is the canvas-unit step applied per arrow/WASD press.
	MoveDistance float64 `yaml:"moveDistance"`

	// ZoomFactor is the per-press scale multiplier (zoom out divides).
	ZoomFactor float64 `yaml:"zoomFactor"`

	// EnableAnnouncements turns on screen-reader announcement strings.
	EnableAnnouncements bool `yaml:"enableAnnouncements"`

	// EnableSpatialContext appends grid context ("row 1, column 2") to
	// section announcements.
	EnableSpatialContext bool `yaml:"enableSpatialContext"`

	// MaxResponseTime is the soft key-to-commit budget in milliseconds.
	// Exceeding it logs a warning; it never blocks or fails the command.
	MaxResponseTime int `yaml:"maxResponseTime"`
}

// DefaultOptions returns the options used when no file is supplied:
// keyboard navigation and announcements on, 100-unit steps, 1.2x zoom.
func DefaultOptions() Options {
	return Options{
		KeyboardSpatialNav:   true,
		MoveDistance:         DefaultMoveDistance,
		ZoomFactor:           DefaultZoomFactor,
		EnableAnnouncements:  true,
		EnableSpatialContext: false,
		MaxResponseTime:      DefaultMaxResponseTime,
	}
}

// Load reads and parses an options YAML file. Unknown fields (typos) and
// out-of-range values are errors.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}
	return Parse(data)
}

// Parse decodes options YAML with strict field validation. Omitted numeric
// fields take their defaults; present fields must be in range.
func Parse(data []byte) (Options, error) {
	opts := DefaultOptions()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse options YAML: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

// Validate checks value ranges. Zero values are rejected rather than
// defaulted here; defaulting happens only for fields absent from the file.
func (o Options) Validate() error {
	if o.MoveDistance <= 0 {
		return fmt.Errorf("moveDistance must be positive, got %v", o.MoveDistance)
	}
	if o.ZoomFactor <= 1 {
		return fmt.Errorf("zoomFactor must be greater than 1, got %v", o.ZoomFactor)
	}
	if o.MaxResponseTime <= 0 {
		return fmt.Errorf("maxResponseTime must be positive, got %v", o.MaxResponseTime)
	}
	return nil
}
