package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised while driving a conversation.
type ErrorKind string

const (
	// KindConfiguration marks a missing or invalid configuration value. Fatal at startup.
	KindConfiguration ErrorKind = "configuration"
	// KindRender marks a template placeholder that had no value. Programmer error, fatal.
	KindRender ErrorKind = "render"
	// KindExtraction marks a backend reply that did not carry the expected answer keys.
	KindExtraction ErrorKind = "extraction"
	// KindMalformedOutput marks a structured reply missing its single output key.
	KindMalformedOutput ErrorKind = "malformed_output"
	// KindGeneration marks a failed or timed out backend call.
	KindGeneration ErrorKind = "generation"
	// KindPersistence marks a sink failure. Never blocks stage progression.
	KindPersistence ErrorKind = "persistence"
	// KindInvalidInput marks a turn or choice that does not apply to the current stage.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindInvariant marks an internal consistency violation.
	KindInvariant ErrorKind = "invariant"
)

// Error is the structured error used across the conversation core.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	var prefix string
	if e.Op != "" {
		prefix = e.Op + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %s: %v", prefix, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s%s: %s", prefix, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the user can safely resend the same input.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindExtraction, KindMalformedOutput, KindGeneration, KindInvalidInput:
		return true
	default:
		return false
	}
}

// Fatal reports whether the error indicates a deployment defect that should halt the session.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindConfiguration, KindRender, KindInvariant:
		return true
	default:
		return false
	}
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// ConfigurationError reports an invalid configuration.
func ConfigurationError(op, message string, err error) *Error {
	return NewError(KindConfiguration, op, message, err)
}

// RenderError reports unresolved placeholders.
func RenderError(op, message string, err error) *Error {
	return NewError(KindRender, op, message, err)
}

// ExtractionError reports an unusable extraction reply.
func ExtractionError(op, message string, err error) *Error {
	return NewError(KindExtraction, op, message, err)
}

// MalformedOutputError reports a structured reply without its output key.
func MalformedOutputError(op, message string, err error) *Error {
	return NewError(KindMalformedOutput, op, message, err)
}

// GenerationError reports an unrecoverable backend call failure for the current transition.
func GenerationError(op, message string, err error) *Error {
	return NewError(KindGeneration, op, message, err)
}

// PersistenceError reports a sink failure.
func PersistenceError(op, message string, err error) *Error {
	return NewError(KindPersistence, op, message, err)
}

// InvalidInputError reports a turn or choice the current stage cannot accept.
func InvalidInputError(op, message string) *Error {
	return NewError(KindInvalidInput, op, message, nil)
}

// InvariantError reports an internal consistency violation.
func InvariantError(op, message string) *Error {
	return NewError(KindInvariant, op, message, nil)
}

// IsKind reports whether err carries a *Error of the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// IsFatal reports whether err should halt the session. Untyped errors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return true
}
