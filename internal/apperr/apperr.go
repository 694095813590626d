// Package apperr defines the error kinds surfaced by the try-on pipeline
// and their mapping onto HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes a pipeline failure.
type Kind string

const (
	KindMissingField      Kind = "MISSING_FIELD"
	KindInvalidField      Kind = "INVALID_FIELD"
	KindDependencyMissing Kind = "DEPENDENCY_MISSING"
	KindRemoteSubmit      Kind = "REMOTE_SUBMIT_ERROR"
	KindRemoteJobFailed   Kind = "REMOTE_JOB_FAILED"
	KindProcessFailed     Kind = "PROCESS_FAILED"
	KindOutputMissing     Kind = "OUTPUT_MISSING"
	KindTimeout           Kind = "TIMEOUT"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindNotConfigured     Kind = "NOT_CONFIGURED"
	KindInternal          Kind = "INTERNAL"
)

// Status returns the HTTP status code reported for the kind.
func (k Kind) Status() int {
	switch k {
	case KindMissingField, KindInvalidField:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a pipeline failure carrying a client-facing message and optional
// diagnostics (captured process output, upstream error text).
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.OutputMissing(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause. The cause text is
// kept as details.
func Wrap(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Cause: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// WithDetails returns a copy of e with the diagnostics replaced.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

func MissingField(message string) *Error {
	return New(KindMissingField, message)
}

func InvalidField(message string) *Error {
	return New(KindInvalidField, message)
}

func DependencyMissing(message string) *Error {
	return New(KindDependencyMissing, message)
}

func ProcessFailed(message string) *Error {
	return New(KindProcessFailed, message)
}

func OutputMissing(message string) *Error {
	return New(KindOutputMissing, message)
}

func RemoteJobFailed(message string) *Error {
	return New(KindRemoteJobFailed, message)
}

func Timeout(message string) *Error {
	return New(KindTimeout, message)
}

// KindOf returns the kind of err, mapping bare context errors to Timeout and
// anything unrecognised to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// From converts any error into an *Error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, "Request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(KindInternal, "Request was canceled", err)
	}
	return Wrap(KindInternal, "Internal server error", err)
}
