package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports an unknown product id. The operation is fatal for
// the caller and never retried by the engine.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ID)
}

// InvalidStateError reports that a concurrent mutation would violate a
// pricing invariant. The caller should retry the single operation.
type InvalidStateError struct {
	ID     string
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("product %s: invalid state: %s", e.ID, e.Reason)
}

// ValidationError reports malformed creation or update parameters.
// Invalid parameters are rejected, never silently clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var is InvalidStateError
	return errors.As(err, &is)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
