package movement

import (
	"errors"
	"fmt"

	"github.com/roach88/viewfinder/internal/sections"
)

// Rect is an axis-aligned bounding box in canvas pixels, used to locate
// match-cut anchor elements.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the geometric center of the rect.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// AnchorPair holds the bounding rects of the shared visual element in the
// origin and destination sections of a match cut.
type AnchorPair struct {
	From Rect
	To   Rect
}

// Delta returns the pixel-space displacement between the anchor centers.
// Driving the canvas by -Delta keeps the shared element visually stationary
// through the cut.
func (p AnchorPair) Delta() (dx, dy float64) {
	fx, fy := p.From.Center()
	tx, ty := p.To.Center()
	return tx - fx, ty - fy
}

// AnchorResolver locates the shared visual anchor between two sections. The
// presentation layer implements this; the engine only consumes the rects.
type AnchorResolver interface {
	// SharedAnchor returns the anchor pair, or an error (conventionally
	// wrapping AnchorNotFoundError) when either side lacks the element.
	SharedAnchor(from, to sections.ID) (AnchorPair, error)
}

// AnchorNotFoundError reports that a match cut could not locate its shared
// anchor. The calculator falls back to pan-tilt and reports the fallback;
// this error never fails the overall navigation.
type AnchorNotFoundError struct {
	From sections.ID
	To   sections.ID
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("no shared anchor between %q and %q: falling back to pan-tilt", e.From, e.To)
}

// IsAnchorNotFound reports whether err is (or wraps) an AnchorNotFoundError.
func IsAnchorNotFound(err error) bool {
	var anf *AnchorNotFoundError
	return errors.As(err, &anf)
}

// StaticAnchorResolver resolves anchors from a fixed table keyed by section
// pair. Useful for tests and for layouts whose anchors are known up front.
type StaticAnchorResolver struct {
	Anchors map[[2]sections.ID]AnchorPair
}

// SharedAnchor implements AnchorResolver.
func (r *StaticAnchorResolver) SharedAnchor(from, to sections.ID) (AnchorPair, error) {
	if pair, ok := r.Anchors[[2]sections.ID{from, to}]; ok {
		return pair, nil
	}
	return AnchorPair{}, &AnchorNotFoundError{From: from, To: to}
}
