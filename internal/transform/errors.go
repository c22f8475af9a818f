package transform

import (
	"errors"
	"fmt"
)

// OutOfBoundsError reports a position component outside the viewport
// constraints. It is always recoverable: callers clamp and continue, they
// never crash on it.
type OutOfBoundsError struct {
	// Axis names the violated component: "x", "y", "scale", or "nan" when
	// the value is not a number at all.
	Axis  string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface.
func (e *OutOfBoundsError) Error() string {
	if e.Axis == "nan" {
		return "position out of bounds: component is NaN"
	}
	return fmt.Sprintf("position out of bounds: %s=%g outside [%g, %g]", e.Axis, e.Value, e.Min, e.Max)
}

// IsOutOfBounds reports whether err is (or wraps) an OutOfBoundsError.
func IsOutOfBounds(err error) bool {
	var oob *OutOfBoundsError
	return errors.As(err, &oob)
}
