package errorcheck

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownErrorCategory is returned when a category is not registered.
	ErrUnknownErrorCategory = errors.New("unknown error category")

	// ErrIndexOutOfRange is returned when a display index is outside the table.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidPolicy is returned for a policy value outside Never..Always.
	ErrInvalidPolicy = errors.New("invalid disable policy")

	// ErrDuplicateCategory is returned when a category is registered twice.
	ErrDuplicateCategory = errors.New("duplicate error category")
)

// RegistryError describes a failed registry operation.
type RegistryError struct {
	// Operation is the registry method that failed ("register", "set_policy", ...).
	Operation string

	// Category is the category involved, if any.
	Category Category

	// Index is the display index involved, or -1.
	Index int

	// Cause is the sentinel or underlying error.
	Cause error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	switch {
	case e.Category != "":
		return fmt.Sprintf("errorcheck %s %q: %v", e.Operation, e.Category, e.Cause)
	case e.Index >= 0:
		return fmt.Sprintf("errorcheck %s index %d: %v", e.Operation, e.Index, e.Cause)
	default:
		return fmt.Sprintf("errorcheck %s: %v", e.Operation, e.Cause)
	}
}

// Unwrap returns the underlying cause.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}
