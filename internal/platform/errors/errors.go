// Package errors provides coded errors for the lockdown engine.
//
// Gameplay paths never fail hard: these values ride on results and events so the
// presentation layer can pick the right feedback.
package errors

import stderrors "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// A dependent subsystem reference is absent. Logged, feature degrades.
	CodeMissingCollaborator Code = "MISSING_COLLABORATOR"

	// Code submission errors
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeDuplicateSubmission Code = "DUPLICATE_SUBMISSION"
	CodeUnrecognizedCode    Code = "UNRECOGNIZED_CODE"

	// Session flow errors
	CodeOutcomeAlreadySelected Code = "OUTCOME_ALREADY_SELECTED"
	CodeChoiceNotPending       Code = "CHOICE_NOT_PENDING"
	CodeChoicePending          Code = "CHOICE_PENDING"
	CodeEscapeUnavailable      Code = "ESCAPE_UNAVAILABLE"
	CodeSessionActive          Code = "SESSION_ACTIVE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Transport errors
	CodeUnknownAction Code = "UNKNOWN_ACTION"
	CodeMalformed     Code = "MALFORMED_ACTION"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeLoopSaturated Code = "LOOP_SATURATED"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Additional context for feedback templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for feedback templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the code from err, or CodeUnknown when err carries none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}
