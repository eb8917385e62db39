// Package domainerrors defines coded errors for the moderation engine.
//
// Services return these so transports can translate them into HTTP responses
// without inspecting error strings. Stores return sentinel errors
// (pkg/platform/sentinel) and services translate them into coded errors at the
// service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeValidation covers malformed input and artifact limit violations.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput covers unparseable identifiers at trust boundaries.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest covers structurally broken requests (bad JSON, missing body).
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers role, ownership and status precondition failures.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers lookups of absent records.
	CodeNotFound Code = "not_found"
	// CodeConflict covers uniqueness violations, stale versions and cascade guards.
	CodeConflict Code = "conflict"
	// CodeInvalidState covers transitions that are illegal for the current state.
	CodeInvalidState Code = "invalid_state"
	// CodeInvariantViolation marks broken model invariants detected by constructors
	// and transition guards. Services translate these before they reach a caller.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnavailable covers unreachable collaborators (artifact store, notifier).
	CodeUnavailable Code = "unavailable"
	// CodeTimeout covers cancelled or deadline-exceeded operations.
	CodeTimeout Code = "timeout"
	// CodeInternal covers everything the caller cannot act on.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.cause
		domainErr = nil
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal if none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message carried by err, or empty if none.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}
