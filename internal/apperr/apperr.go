// Package apperr classifies errors by kind so the HTTP layer can map them to
// status codes. Messages on *Error are safe to return to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to react to it.
type Kind string

// Error kinds.
const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindNotFound:       http.StatusNotFound,
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindConflict:       http.StatusConflict,
	KindInternal:       http.StatusInternalServerError,
}

// Error is a classified, caller-recoverable error. The message is safe to
// show to API clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a public message.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation returns an error for malformed or out-of-range input.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// NotFound returns an error for a missing entity.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Authentication returns an error for missing or bad credentials.
func Authentication(format string, args ...any) *Error {
	return New(KindAuthentication, format, args...)
}

// Authorization returns an error for an action the actor may not perform.
func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

// Conflict returns an error for a write that clashes with current state.
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
