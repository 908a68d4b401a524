package constraint

import (
	"errors"
	"fmt"
)

// ErrInvalidValue indicates a constraint field outside its domain.
var ErrInvalidValue = errors.New("invalid constraint value")

// ValidationError describes a constraint field that violates its domain.
// The orchestrator treats it as sample-fatal.
type ValidationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("constraint field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error for a constraint field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// IsValidationError checks if an error is a constraint validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
