package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/viewfinder/internal/movement"
)

// RuntimeErrorCode categorizes navigation runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMovementRefused indicates the concurrency ceiling was hit or a
	// single-use movement was requested again. The movement does not start.
	ErrCodeMovementRefused RuntimeErrorCode = "MOVEMENT_REFUSED"

	// ErrCodeAnchorNotFound indicates a match cut lacked a shared anchor
	// and fell back to pan-tilt.
	ErrCodeAnchorNotFound RuntimeErrorCode = "ANCHOR_NOT_FOUND"

	// ErrCodeUnknownSection indicates a section outside the registry was
	// requested and resolved to the default position.
	ErrCodeUnknownSection RuntimeErrorCode = "UNKNOWN_SECTION"

	// ErrCodeOutOfBounds indicates a computed position violated the
	// viewport constraints and was clamped.
	ErrCodeOutOfBounds RuntimeErrorCode = "OUT_OF_BOUNDS"

	// ErrCodeMissingCapability indicates a host API was unavailable and a
	// neutral value was substituted.
	ErrCodeMissingCapability RuntimeErrorCode = "MISSING_CAPABILITY"
)

// RuntimeError is the diagnostic channel of the orchestrator. Every member
// of the taxonomy is handled locally and recoverable - a RuntimeError is a
// report, never a crash.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Kind    movement.Kind
	Token   string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Kind != "" && e.Kind != movement.None {
		return fmt.Sprintf("%s: %s (movement=%s)", e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMovementRefused reports whether err is a MOVEMENT_REFUSED diagnostic.
func IsMovementRefused(err error) bool {
	return hasCode(err, ErrCodeMovementRefused)
}

// IsAnchorFallback reports whether err is an ANCHOR_NOT_FOUND diagnostic.
func IsAnchorFallback(err error) bool {
	return hasCode(err, ErrCodeAnchorNotFound)
}

// IsUnknownSection reports whether err is an UNKNOWN_SECTION diagnostic.
func IsUnknownSection(err error) bool {
	return hasCode(err, ErrCodeUnknownSection)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
