package pipeline

import (
	"errors"
	"fmt"

	"skyline-hq/anarchy/pkg/placement"
)

var (
	// ErrMissingHostSystem is returned when a pass depends on a host system
	// that could not be resolved. The dependent pass is disabled.
	ErrMissingHostSystem = errors.New("missing host system")

	// ErrCompositionConflict marks a requested composition flag that was
	// dropped because of a hard topology constraint.
	ErrCompositionConflict = errors.New("composition conflict")
)

// PassError records a fault raised by one pass.
type PassError struct {
	Pass  string
	Frame uint64

	// Panicked is true if the pass panicked rather than returning an error.
	Panicked bool

	Cause error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("pass %s panicked in frame %d: %v", e.Pass, e.Frame, e.Cause)
	}
	return fmt.Sprintf("pass %s failed in frame %d: %v", e.Pass, e.Frame, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *PassError) Unwrap() error {
	return e.Cause
}

// CompositionConflict is a non-fatal report that one requested flag was
// dropped from a segment.
type CompositionConflict struct {
	Entity placement.EntityID    `json:"entity"`
	Flag   placement.Composition `json:"flag"`
	Reason string                `json:"reason"`
}

// Error implements the error interface.
func (c CompositionConflict) Error() string {
	return fmt.Sprintf("segment %d: %s dropped: %s", c.Entity, c.Flag, c.Reason)
}

// Unwrap lets errors.Is match ErrCompositionConflict.
func (c CompositionConflict) Unwrap() error {
	return ErrCompositionConflict
}
