// Package movement defines the camera movement vocabulary: the closed set of
// movement kinds, their timing and easing contracts, and the pure per-frame
// sample computation for each kind.
//
// Nothing in this package owns state or time. The orchestrator owns the
// clock and the active-movement state machine; this package answers "where
// is the camera at progress t" and nothing else.
package movement

// Kind is the closed set of camera movements. The calculator switches
// exhaustively over Kind - adding a member without a computation, duration,
// and easing entry is a compile-visible omission, not a silent fallthrough.
type Kind string

const (
	// None is the idle sentinel - no movement in flight.
	None Kind = "none"
	// PanTilt interpolates x, y, and scale linearly under a mechanical,
	// non-bouncy ease.
	PanTilt Kind = "pan-tilt"
	// ZoomIn holds x,y fixed and interpolates scale upward.
	ZoomIn Kind = "zoom-in"
	// ZoomOut holds x,y fixed and interpolates scale downward.
	ZoomOut Kind = "zoom-out"
	// DollyZoom combines a scale change with a compensating parallax shift
	// (the "vertigo" effect). Usable at most once per session; the
	// orchestrator enforces the one-shot invariant.
	DollyZoom Kind = "dolly-zoom"
	// RackFocus sharpens a target element while blurring and fading its
	// siblings. It never moves the canvas - it overlays any position change.
	RackFocus Kind = "rack-focus"
	// MatchCut keeps a visually shared anchor element stationary through a
	// section change. Falls back to PanTilt when no shared anchor exists.
	MatchCut Kind = "match-cut"
)

// Kinds lists every startable movement (everything except None).
var Kinds = []Kind{PanTilt, ZoomIn, ZoomOut, DollyZoom, RackFocus, MatchCut}

// Valid reports whether k is a member of the closed vocabulary, including
// the None sentinel.
func (k Kind) Valid() bool {
	if k == None {
		return true
	}
	for _, known := range Kinds {
		if known == k {
			return true
		}
	}
	return false
}

// NominalDuration returns the intrinsic duration of a movement kind in
// milliseconds, before any adaptive scaling by the orchestrator.
func (k Kind) NominalDuration() float64 {
	switch k {
	case PanTilt:
		return 800
	case ZoomIn, ZoomOut:
		return 600
	case DollyZoom:
		return 1200 // longer than pan-tilt, for cinematic weight
	case RackFocus:
		return 600
	case MatchCut:
		return 300 // short, cut-like
	default:
		return 0
	}
}

// Easing returns the easing curve bound to a movement kind.
func (k Kind) Easing() Easing {
	switch k {
	case PanTilt:
		return EaseInOutCubic
	case ZoomIn, ZoomOut:
		return EaseInOutQuad
	case DollyZoom:
		return EaseInOutSine
	case RackFocus:
		return EaseInOutQuad
	case MatchCut:
		return EaseOutQuad
	default:
		return EaseLinear
	}
}
