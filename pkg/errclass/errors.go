package errclass

import (
	"errors"
	"fmt"
)

// DMISError is a stable, machine-readable error class.
type DMISError struct {
	Code    string
	Message string
}

func (e *DMISError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DMISError) Is(target error) bool {
	t, ok := target.(*DMISError)
	return ok && e.Code == t.Code
}

// WithMessage returns a new DMISError with the same Code but a specific message.
func (e *DMISError) WithMessage(msg string) *DMISError {
	return &DMISError{Code: e.Code, Message: msg}
}

// WithMessagef returns a new DMISError with a formatted message.
func (e *DMISError) WithMessagef(format string, args ...any) *DMISError {
	return &DMISError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the class code carried by err, or "" when err is unclassified.
func CodeOf(err error) string {
	var de *DMISError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Replenishment error classes.
var (
	ErrPermissionDenied       = &DMISError{Code: "E_PERMISSION_DENIED"}
	ErrInvalidStateTransition = &DMISError{Code: "E_INVALID_STATE_TRANSITION"}
	ErrReasonRequired         = &DMISError{Code: "E_REASON_REQUIRED"}
	ErrVersionConflict        = &DMISError{Code: "E_VERSION_CONFLICT"}
	ErrPlanInvariantViolation = &DMISError{Code: "E_PLAN_INVARIANT_VIOLATION"}
	ErrNotFound               = &DMISError{Code: "E_NOT_FOUND"}
	ErrUnknownAction          = &DMISError{Code: "E_UNKNOWN_ACTION"}
	ErrInvalidQuantity        = &DMISError{Code: "E_INVALID_QUANTITY"}
	ErrValidation             = &DMISError{Code: "E_VALIDATION"}
)
