package movement

import "math"

// Easing maps normalized movement time to normalized displacement. All
// curves used here are monotonic on [0,1] - camera movements never overshoot
// or bounce.
type Easing func(t float64) float64

// EaseLinear is the identity curve.
func EaseLinear(t float64) float64 { return t }

// EaseInOutCubic accelerates through the first half and decelerates through
// the second, approximating a mechanical camera pan.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// EaseInOutQuad is a gentler symmetric curve used for centered zooms.
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// EaseOutQuad decelerates from full speed, used for short cut-like moves.
func EaseOutQuad(t float64) float64 {
	return t * (2 - t)
}

// EaseInOutSine is the slowest-starting curve here; the dolly zoom uses it
// for cinematic weight.
func EaseInOutSine(t float64) float64 {
	return -(math.Cos(math.Pi*t) - 1) / 2
}

// lerp performs linear interpolation between a and b.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// clampProgress constrains t to [0,1]. NaN collapses to 0 so a corrupted
// clock sample cannot produce a NaN position.
func clampProgress(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
