/*
errors.go - Centralized error types for the time-accounting engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Validation errors - Bad limit values, malformed punches, missing reasons.
     Returned synchronously to the caller, never swallowed.
  2. Not-found errors - Resetting an unconfigured limit, correcting a
     punch that does not exist.
  3. Recalculation errors - A single record failed to compute. Accumulated
     in the batch report; processing continues.
  4. Persistence errors - Store unavailable or timed out. Abort only the
     operation that triggered them, never leave a partial write.

All user-visible failures carry a human-readable reason string.
*/
package timeclock

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks client-input failures (bad limit value, missing
	// correction reason, malformed punch).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks references to entities that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks durable-store failures and timeouts.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports invalid input for a single field or record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Kind string // "punch", "limit", "collaborator"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return ErrPersistence }

// RecalculationError records one record that failed during a bulk
// recalculation. It is reported, not propagated: the batch continues.
type RecalculationError struct {
	CollaboratorID CollaboratorID
	Date           Date
	Err            error
}

func (e *RecalculationError) Error() string {
	return fmt.Sprintf("recalculation failed for %s on %s: %v", e.CollaboratorID, e.Date, e.Err)
}

func (e *RecalculationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPersistence returns true if the error came from the durable store.
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }
