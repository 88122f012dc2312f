/*
errors.go - Centralized error taxonomy for the loyalty core

PURPOSE:
  All domain error kinds in one place. Callers branch on error KIND,
  never on message text, and absence is always an explicit error:
  lookups that find nothing return a NotFoundError, never a nil value
  with silent pass-through.

ERROR CATEGORIES:
  1. Not found   - referenced customer/program/identifier does not exist
  2. Validation  - malformed or semantically invalid input
  3. Conflict    - uniqueness violations (duplicate external code)
  4. Storage     - underlying persistence failure; the enclosing unit
                   of work has been rolled back

USAGE:
  if loyalty.IsNotFound(err) { ... }            // kind check
  var nf *loyalty.NotFoundError
  if errors.As(err, &nf) { ... nf.Kind ... }    // structured details
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the root of all not-found errors.
	ErrNotFound = errors.New("not found")

	// ErrValidation is the root of all input validation errors.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned on uniqueness violations.
	ErrConflict = errors.New("conflict")

	// ErrStorage wraps persistence failures. When returned from a
	// multi-step write, the whole operation has been rolled back.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports a missing entity. Kind names what was looked
// up ("customer", "program"), Ref is the identifier that missed.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CustomerNotFound builds a NotFoundError for a customer reference.
func CustomerNotFound(ref CustomerRef) *NotFoundError {
	return &NotFoundError{Kind: "customer", Ref: ref.String()}
}

// ProgramNotFound builds a NotFoundError for a program id.
func ProgramNotFound(id ProgramID) *NotFoundError {
	return &NotFoundError{Kind: "program", Ref: fmt.Sprintf("id:%d", id)}
}

// ValidationError reports semantically invalid input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason) }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a persistence failure with the failing operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

// Unwrap exposes both the storage sentinel and the underlying cause, so
// errors.Is sees ErrConflict through a StorageError wrapping it.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConflict returns true on uniqueness violations.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsStorage returns true if the underlying store failed.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
