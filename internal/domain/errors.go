package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Adapters and services wrap them with
// context; the API edge classifies with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrCodeMismatch   = errors.New("confirmation code mismatch")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("too many attempts")
)

// ErrInvalidRoleOrZone is returned when a zone is missing for a zone-routed
// role, or supplied for a role that is not routed by zone.
var ErrInvalidRoleOrZone = fmt.Errorf("%w: role and zone do not match", ErrValidation)

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError is returned when a guarded transition affected no rows.
// Current carries the status observed when the failure was classified, so
// callers can tell the user what happened without another round trip.
type ConflictError struct {
	RequestID  int64
	Transition Transition
	Current    Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("request %d: cannot %s from status %s", e.RequestID, e.Transition, e.Current)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
