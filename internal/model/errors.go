package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("signup not found")
	ErrValidation          = errors.New("invalid signup")
	ErrDuplicateSignup     = errors.New("a signup for this date and category already exists; edit the existing signup instead")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrForbidden           = errors.New("only the owner may modify this signup")
	ErrProfileLookupFailed = errors.New("profile lookup failed")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotEditing          = errors.New("signup is not being edited")
)

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
