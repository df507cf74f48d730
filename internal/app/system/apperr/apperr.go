// Package apperr defines the error kinds returned by the service layer and
// the HTTP status each kind maps to.
//
// Services return *Error values; the JSON error writer in features/errors
// turns them into {"error": message} bodies. Anything that is not an *Error
// is treated as Internal and its message is never shown to the client.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindInvalidState       Kind = "invalid_state"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthorized       Kind = "unauthorized"
	KindInvalidToken       Kind = "invalid_token"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:         http.StatusBadRequest,
	KindConflict:           http.StatusBadRequest,
	KindInvalidState:       http.StatusBadRequest,
	KindInvalidCredentials: http.StatusBadRequest,
	KindUnauthorized:       http.StatusUnauthorized,
	KindInvalidToken:       http.StatusForbidden,
	KindForbidden:          http.StatusForbidden,
	KindNotFound:           http.StatusNotFound,
	KindRateLimited:        http.StatusTooManyRequests,
	KindInternal:           http.StatusInternalServerError,
}

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Message string
	// StatusTag is exposed to clients on Forbidden login errors (pending | rejected).
	StatusTag string
	// Fields holds per-field messages for aggregated validation failures.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code for e's kind.
func (e *Error) HTTPStatus() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Validation reports malformed, missing or out-of-range input.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// ValidationFields aggregates several field messages into one Validation error.
func ValidationFields(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }
func InvalidCredentials(msg string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: msg}
}
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func InvalidToken(msg string) *Error { return &Error{Kind: KindInvalidToken, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func RateLimited(msg string) *Error  { return &Error{Kind: KindRateLimited, Message: msg} }

// ForbiddenStatus is a Forbidden error carrying a status tag for the client.
func ForbiddenStatus(msg, tag string) *Error {
	return &Error{Kind: KindForbidden, Message: msg, StatusTag: tag}
}

// Internal wraps an unexpected failure. The wrapped error is logged, not shown.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error from err. Errors of any other type come back as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
