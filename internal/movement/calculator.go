package movement

import (
	"math"

	"github.com/roach88/viewfinder/internal/transform"
)

// Effects carries the auxiliary overlay parameters a sample may produce.
// Zero values mean "no effect": no blur, full opacity, no morph.
type Effects struct {
	// BlurRadius is the defocus blur applied to sibling elements, in px.
	BlurRadius float64 `json:"blur_radius,omitempty"`
	// SiblingOpacity is the opacity applied to defocused siblings, in
	// [0,1]. 1 when no rack focus is active.
	SiblingOpacity float64 `json:"sibling_opacity,omitempty"`
	// MorphProgress drives the match-cut morph, in [0,1].
	MorphProgress float64 `json:"morph_progress,omitempty"`
}

// Sample is one frame of a movement: the canvas position plus any overlay
// effect parameters.
type Sample struct {
	Position transform.Position `json:"position"`
	Effects  Effects            `json:"effects"`
}

// Rack focus tuning. Siblings blur up to MaxDefocusBlur px and fade down to
// MinSiblingOpacity at full progress.
const (
	MaxDefocusBlur    = 8.0
	MinSiblingOpacity = 0.6
)

// dollyParallaxGain scales the compensating positional shift of a dolly
// zoom relative to the scale change.
const dollyParallaxGain = 120.0

// Plan is the frozen per-movement configuration the orchestrator builds at
// start time: the endpoints, the kind actually executed (after any match-cut
// fallback), and the anchor delta for match cuts.
type Plan struct {
	Kind Kind
	From transform.Position
	To   transform.Position

	// AnchorDX/AnchorDY hold the pixel-space anchor displacement for match
	// cuts. Zero for every other kind.
	AnchorDX float64
	AnchorDY float64
}

// Compute returns the movement sample at the given progress. It is pure:
// the same plan and progress always produce the same sample, and no call
// mutates the plan. Progress outside [0,1] is clamped.
//
// The switch over Kind is exhaustive over the startable vocabulary; None
// (and any out-of-vocabulary value) holds the origin position, which the
// orchestrator treats as an immediately complete no-op.
func Compute(p Plan, progress float64) Sample {
	t := p.Kind.Easing()(clampProgress(progress))

	switch p.Kind {
	case PanTilt:
		return Sample{
			Position: transform.Position{
				X:     lerp(p.From.X, p.To.X, t),
				Y:     lerp(p.From.Y, p.To.Y, t),
				Scale: lerp(p.From.Scale, p.To.Scale, t),
			},
			Effects: Effects{SiblingOpacity: 1},
		}

	case ZoomIn, ZoomOut:
		// Centered zoom: position holds, only scale moves.
		return Sample{
			Position: transform.Position{
				X:     p.From.X,
				Y:     p.From.Y,
				Scale: lerp(p.From.Scale, p.To.Scale, t),
			},
			Effects: Effects{SiblingOpacity: 1},
		}

	case DollyZoom:
		return computeDollyZoom(p, t)

	case RackFocus:
		// Overlay effect only - the canvas position never moves.
		return Sample{
			Position: p.From,
			Effects: Effects{
				BlurRadius:     MaxDefocusBlur * t,
				SiblingOpacity: lerp(1, MinSiblingOpacity, t),
			},
		}

	case MatchCut:
		return computeMatchCut(p, t)

	default:
		return Sample{Position: p.From, Effects: Effects{SiblingOpacity: 1}}
	}
}

// computeDollyZoom interpolates scale while applying a compensating parallax
// shift that peaks mid-movement, producing the classic vertigo distortion.
// At t=0 and t=1 the parallax term vanishes, so the movement still lands
// exactly on the target position.
func computeDollyZoom(p Plan, t float64) Sample {
	scaleDelta := p.To.Scale - p.From.Scale
	// sin(pi*t) rises from 0, peaks at t=0.5, returns to 0. Pinned to zero
	// at the endpoints so the movement lands exactly on its target
	// (math.Sin(math.Pi) is not exactly zero).
	var parallax float64
	if t > 0 && t < 1 {
		parallax = math.Sin(math.Pi*t) * scaleDelta * dollyParallaxGain
	}

	return Sample{
		Position: transform.Position{
			X:     lerp(p.From.X, p.To.X, t) + parallax,
			Y:     lerp(p.From.Y, p.To.Y, t) - parallax/2,
			Scale: lerp(p.From.Scale, p.To.Scale, t),
		},
		Effects: Effects{SiblingOpacity: 1},
	}
}

// computeMatchCut drives the canvas so the shared anchor stays visually
// stationary: the anchor displacement is paid out against the eased
// progress, front-loaded by the EaseOutQuad curve bound to MatchCut.
func computeMatchCut(p Plan, t float64) Sample {
	return Sample{
		Position: transform.Position{
			X:     lerp(p.From.X, p.To.X, t) - p.AnchorDX*(1-t),
			Y:     lerp(p.From.Y, p.To.Y, t) - p.AnchorDY*(1-t),
			Scale: lerp(p.From.Scale, p.To.Scale, t),
		},
		Effects: Effects{
			SiblingOpacity: 1,
			MorphProgress:  t,
		},
	}
}
