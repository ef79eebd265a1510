package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// Audit workflow errors.
var (
	ErrSessionConflict     = errors.New("session conflict")
	ErrInvalidSessionState = errors.New("invalid session state")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrUnknownBarcode      = errors.New("unknown barcode")
	ErrActionApplyFailure  = errors.New("action apply failure")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// SessionConflictError reports that a location already has an open session.
type SessionConflictError struct {
	LocationID int64
	SessionID  uuid.UUID
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("location %d already has open session %s", e.LocationID, e.SessionID)
}

func (e *SessionConflictError) Unwrap() error { return ErrSessionConflict }

// SessionStateError reports an operation attempted while the session is in
// a status that does not allow it.
type SessionStateError struct {
	Op     string
	Status SessionStatus
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s not allowed in session status %s", e.Op, e.Status)
}

func (e *SessionStateError) Unwrap() error { return ErrInvalidSessionState }

// TransitionError reports a status change that is not in the transition table.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s is not allowed", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// OpenDiscrepanciesError blocks approval while discrepancies are still open.
type OpenDiscrepanciesError struct {
	Count int
}

func (e *OpenDiscrepanciesError) Error() string {
	return fmt.Sprintf("%d open discrepancies; resolve them or approve with override", e.Count)
}

func (e *OpenDiscrepanciesError) Unwrap() error { return ErrConflict }

// ActionApplyError wraps a backend failure for a single remediation action.
type ActionApplyError struct {
	ActionID uuid.UUID
	Err      error
}

func (e *ActionApplyError) Error() string {
	return fmt.Sprintf("action %s: %v", e.ActionID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ActionApplyError) Unwrap() []error { return []error{ErrActionApplyFailure, e.Err} }
