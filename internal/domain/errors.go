package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable classification of a failure.
type ErrorKind string

const (
	KindNotConfigured          ErrorKind = "NOT_CONFIGURED"
	KindUpstreamQuotaExceeded  ErrorKind = "UPSTREAM_QUOTA_EXCEEDED"
	KindUpstreamRequestDenied  ErrorKind = "UPSTREAM_REQUEST_DENIED"
	KindUpstreamNoResults      ErrorKind = "UPSTREAM_NO_RESULTS"
	KindUpstreamInvalidRequest ErrorKind = "UPSTREAM_INVALID_REQUEST"
	KindUpstreamUnknown        ErrorKind = "UPSTREAM_UNKNOWN"
	KindUpstreamTimeout        ErrorKind = "UPSTREAM_TIMEOUT"
	KindRouteNotFound          ErrorKind = "ROUTE_NOT_FOUND"
	KindInvalidInput           ErrorKind = "INVALID_INPUT"
	KindLocationMismatch       ErrorKind = "LOCATION_MISMATCH"
	KindInsufficientPoints     ErrorKind = "INSUFFICIENT_POINTS"
	KindNoBookingsForDate      ErrorKind = "NO_BOOKINGS_FOR_DATE"
	KindDBError                ErrorKind = "DB_ERROR"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindConflict               ErrorKind = "CONFLICT"
	KindForbidden              ErrorKind = "FORBIDDEN"
)

// Error is the typed error returned by every component of the service.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail attaches a machine-readable detail and returns the same error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an error of the given kind that wraps cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// NewValidationError reports caller-supplied input that cannot be processed.
func NewValidationError(message string) *Error {
	return NewError(KindInvalidInput, message)
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s not found: %s", entity, id))
}

// NewConflictError reports a write that collided with existing state.
func NewConflictError(message string) *Error {
	return NewError(KindConflict, message)
}

// NewDBError wraps a persistence failure.
func NewDBError(op string, cause error) *Error {
	return WrapError(KindDBError, op, cause)
}

// NewNotConfiguredError reports a missing external integration.
func NewNotConfiguredError(what string) *Error {
	return NewError(KindNotConfigured, fmt.Sprintf("%s is not configured", what))
}

// NewForbiddenError reports an authenticated caller acting outside its rights.
func NewForbiddenError(message string) *Error {
	return NewError(KindForbidden, message)
}
