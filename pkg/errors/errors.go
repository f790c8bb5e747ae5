package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the classes of failure the pipeline distinguishes
type ErrorType string

const (
	// ErrorTypeTransientUI covers element-not-found-within-timeout failures.
	// A strategy chain swallows these and moves on; they are never fatal.
	ErrorTypeTransientUI ErrorType = "transient_ui"
	// ErrorTypeAuthHard covers challenge/checkpoint/suspend detections.
	// The current identity is abandoned, not retried.
	ErrorTypeAuthHard ErrorType = "auth_hard"
	// ErrorTypeAuthSoft covers login outcomes eligible for a bounded retry.
	ErrorTypeAuthSoft ErrorType = "auth_soft"
	// ErrorTypeExhausted means no identities remain. Terminal for the run.
	ErrorTypeExhausted ErrorType = "accounts_exhausted"
	// ErrorTypeExtraction covers per-post pipeline failures recorded in the
	// batch error list.
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeNavigation covers page-load and scripting failures.
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a failure class alongside its message.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// ErrAccountsExhausted is returned once the rotation cursor passes the last
// configured identity. Callers must treat it as terminal, not retryable.
var ErrAccountsExhausted = &Error{Type: ErrorTypeExhausted, Message: "all accounts failed"}

// TypeOf extracts the failure class from an error chain.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether an error class should be retried with the
// same identity.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeTransientUI, ErrorTypeAuthSoft, ErrorTypeNavigation:
		return true
	case ErrorTypeAuthHard, ErrorTypeExhausted, ErrorTypeConfig:
		return false
	default:
		return false
	}
}

// IsTerminal reports whether an error ends the whole run rather than a
// single identity or post.
func IsTerminal(err error) bool {
	return TypeOf(err) == ErrorTypeExhausted || TypeOf(err) == ErrorTypeConfig
}
