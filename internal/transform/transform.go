// Package transform provides the pure coordinate math at the bottom of the
// navigation engine: conversions between legacy scroll space and canvas
// space, viewport constraint clamping, position validation, and movement
// duration calculation.
//
// All functions are deterministic and stateless. Nothing here allocates
// hidden state or touches the canvas state store - callers pass positions in
// and get positions out.
package transform

import "math"

// Position is the sole spatial state of the canvas: a point plus a scale.
//
// INVARIANT: a Position committed to the state store always satisfies
// MinScale <= Scale <= MaxScale and sits inside the viewport rectangle.
// Raw Positions produced by calculators may violate this; Clamp or Validate
// before hand-off.
type Position struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Scale float64 `json:"scale" yaml:"scale"`
}

// ScrollPoint is a position in the legacy unscaled scroll coordinate space.
type ScrollPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Constraints is the read-only viewport configuration supplied at session
// initialization. Min/Max bound each axis independently; Padding is carried
// for presentation layers that inset the usable rectangle.
type Constraints struct {
	MinX     float64 `json:"min_x" yaml:"min_x"`
	MaxX     float64 `json:"max_x" yaml:"max_x"`
	MinY     float64 `json:"min_y" yaml:"min_y"`
	MaxY     float64 `json:"max_y" yaml:"max_y"`
	MinScale float64 `json:"min_scale" yaml:"min_scale"`
	MaxScale float64 `json:"max_scale" yaml:"max_scale"`
	Padding  float64 `json:"padding" yaml:"padding"`
}

// DefaultConstraints returns the session defaults used when no explicit
// viewport configuration is supplied.
func DefaultConstraints() Constraints {
	return Constraints{
		MinX:     -2000,
		MaxX:     2000,
		MinY:     -2000,
		MaxY:     2000,
		MinScale: 0.5,
		MaxScale: 3.0,
		Padding:  50,
	}
}

// Movement duration contract: distance scaled by DurationFactor, then
// clamped to [MinMovementDuration, MaxMovementDuration]. Zero distance is an
// explicit fast path, not a side effect of the clamp.
const (
	DurationFactor      = 0.5 // ms per canvas unit
	MinMovementDuration = 300 // ms
	MaxMovementDuration = 800 // ms
)

// ScrollToCanvas converts a scroll-space point to a canvas position at the
// given scale. The scale is clamped to the constraint range first, so the
// result always carries a legal scale.
func ScrollToCanvas(scroll ScrollPoint, scale float64, c Constraints) Position {
	s := clampFloat(scale, c.MinScale, c.MaxScale)
	return Position{
		X:     scroll.X * s,
		Y:     scroll.Y * s,
		Scale: s,
	}
}

// CanvasToScroll is the inverse of ScrollToCanvas. For any finite scroll
// point and in-range scale, CanvasToScroll(ScrollToCanvas(p, s)) recovers p
// within one unit of absolute error.
//
// A degenerate (zero or non-finite) scale yields the origin rather than an
// Inf/NaN point.
func CanvasToScroll(pos Position) ScrollPoint {
	if pos.Scale == 0 || math.IsNaN(pos.Scale) || math.IsInf(pos.Scale, 0) {
		return ScrollPoint{}
	}
	return ScrollPoint{
		X: pos.X / pos.Scale,
		Y: pos.Y / pos.Scale,
	}
}

// Validate checks a position against the constraints without mutating it.
// On violation it returns a *OutOfBoundsError naming the first offending
// axis. Unusual but in-range finite values (negative coordinates, tiny
// scales above the minimum) are not errors.
func Validate(pos Position, c Constraints) error {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Scale) {
		return &OutOfBoundsError{Axis: "nan", Value: math.NaN()}
	}
	if pos.X < c.MinX || pos.X > c.MaxX {
		return &OutOfBoundsError{Axis: "x", Value: pos.X, Min: c.MinX, Max: c.MaxX}
	}
	if pos.Y < c.MinY || pos.Y > c.MaxY {
		return &OutOfBoundsError{Axis: "y", Value: pos.Y, Min: c.MinY, Max: c.MaxY}
	}
	if pos.Scale < c.MinScale || pos.Scale > c.MaxScale {
		return &OutOfBoundsError{Axis: "scale", Value: pos.Scale, Min: c.MinScale, Max: c.MaxScale}
	}
	return nil
}

// Clamp constrains a position to the viewport rectangle. Each axis is
// clamped independently (x to [MinX,MaxX], y to [MinY,MaxY], scale to
// [MinScale,MaxScale]) rather than projecting onto the rectangle
// proportionally. Clamp is idempotent: Clamp(Clamp(p)) == Clamp(p).
//
// NaN components collapse to the axis minimum so that a corrupted
// intermediate sample can never poison the state store.
func Clamp(pos Position, c Constraints) Position {
	return Position{
		X:     clampFloat(pos.X, c.MinX, c.MaxX),
		Y:     clampFloat(pos.Y, c.MinY, c.MaxY),
		Scale: clampFloat(pos.Scale, c.MinScale, c.MaxScale),
	}
}

// MovementDuration computes the duration in milliseconds for a movement
// between two positions. Identical positions (all three fields equal) take
// zero time; otherwise the Euclidean distance scaled by DurationFactor is
// clamped to [MinMovementDuration, MaxMovementDuration].
func MovementDuration(from, to Position) float64 {
	if from == to {
		return 0
	}
	d := Distance(from, to)
	return clampFloat(d*DurationFactor, MinMovementDuration, MaxMovementDuration)
}

// Distance returns the Euclidean distance between two positions in canvas
// units, ignoring scale.
func Distance(from, to Position) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func clampFloat(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
