package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestValidationError_SingleField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("client_scan_id", "required")

	if got := err.Error(); got != "validation: client_scan_id: required" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
}

func TestValidationError_MultipleFields(t *testing.T) {
	t.Parallel()

	err := NewValidationErrors([]FieldError{
		{Field: "title", Message: "required"},
		{Field: "scope_type", Message: "invalid value"},
	})

	if got := err.Error(); got != "validation: 2 errors" {
		t.Fatalf("unexpected Error(): %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("errors.Is(err, ErrValidation) = false")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrValidation, ErrUnauthorized, ErrForbidden, ErrConflict,
		ErrSessionConflict, ErrInvalidSessionState, ErrInvalidTransition, ErrUnknownBarcode, ErrActionApplyFailure,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestTypedErrors_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"session conflict", &SessionConflictError{LocationID: 10, SessionID: uuid.New()}, ErrSessionConflict},
		{"session state", &SessionStateError{Op: "ingest scan", Status: SessionStatusDraft}, ErrInvalidSessionState},
		{"transition", &TransitionError{Entity: "session", From: "draft", To: "approved"}, ErrInvalidTransition},
		{"open discrepancies", &OpenDiscrepanciesError{Count: 2}, ErrConflict},
		{"action apply sentinel", &ActionApplyError{ActionID: uuid.New(), Err: cause}, ErrActionApplyFailure},
		{"action apply cause", &ActionApplyError{ActionID: uuid.New(), Err: cause}, cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("op: %w", tt.err)
			if !errors.Is(wrapped, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.want)
			}
		})
	}
}

func TestTransitionError_Message(t *testing.T) {
	t.Parallel()

	err := &TransitionError{Entity: "session", From: "draft", To: "approved"}
	if got := err.Error(); got != "session: transition draft -> approved is not allowed" {
		t.Errorf("unexpected Error(): %q", got)
	}
}
