/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error kinds in one place. Every rejection the engine produces is
  one of five structured kinds, each unwrapping to a sentinel so callers
  can classify with errors.Is.

ERROR CATEGORIES:
  1. Validation  - malformed input fields
  2. Transition  - punch not allowed in the current state
  3. Conflict    - duplicate live correction, re-review of a decided request
  4. Not found   - unknown identifiers
  5. Authorization - wrong role or owner

  None of these are transient; callers should not retry them. The only
  retryable condition is ErrConcurrentModification, raised by a store
  when an atomic read-modify-write loses a race.

SEE ALSO:
  - service.go: Maps store contention to ConflictError after retries
  - store.go: Store implementations return the sentinels directly
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base of all malformed-input rejections.
	ErrValidation = errors.New("validation failed")

	// ErrIllegalTransition is returned when a punch is not allowed in the
	// employee's current state, or a therapist attempts a rest break.
	ErrIllegalTransition = errors.New("illegal punch transition")

	// ErrConflict is the base of lifecycle conflicts.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateLiveCorrection is returned by a correction store when an
	// employee+day already has a pending or approved request.
	ErrDuplicateLiveCorrection = errors.New("a correction for this day is already pending or approved")

	// ErrNotFound is returned for unknown identifiers.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned for wrong-role or wrong-owner access.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConcurrentModification is returned when a store detects a lost
	// race during an atomic read-modify-write. The service retries these
	// a bounded number of times before surfacing a ConflictError.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IllegalTransitionError reports a punch rejected at the write boundary.
type IllegalTransitionError struct {
	Type   PunchType
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Type, e.Reason)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// ConflictError reports a lifecycle conflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports an unknown identifier.
type NotFoundError struct {
	Kind string // "employee", "correction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AuthorizationError reports wrong-role or wrong-owner access.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

func (e *AuthorizationError) Unwrap() error { return ErrNotAuthorized }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input
// rather than an engine or storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotAuthorized)
}
