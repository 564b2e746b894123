// Package errors defines the typed errors returned across service and HTTP
// boundaries. Each carries a stable code and the HTTP status it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeCacheMiss    = "CACHE_MISS"
)

// Error is a typed error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Templates for the codes above. Callers Clone or Wrap them rather than
// returning them directly when a more specific message exists.
var (
	ErrNotFound     = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrForbidden    = New(CodeForbidden, http.StatusForbidden, "forbidden")
	ErrUnauthorized = New(CodeUnauthorized, http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New(CodeConflict, http.StatusConflict, "conflict")
	ErrValidation   = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrInternal     = New(CodeInternal, http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New(CodeCacheMiss, http.StatusNotFound, "cache miss")
)

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a code, status and message to cause.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

// Clone copies a template, replacing its message when one is given.
func Clone(template *Error, message string) *Error {
	if template == nil {
		return nil
	}
	clone := *template
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// NotFound reports a missing entity, e.g. NotFound("bus") -> "bus not found".
func NotFound(entity string) *Error {
	return Clone(ErrNotFound, entity+" not found")
}

// Validation wraps a rejected payload.
func Validation(cause error, message string) *Error {
	return Wrap(cause, CodeValidation, http.StatusBadRequest, message)
}

// Internal wraps an unexpected failure with a caller supplied message.
func Internal(cause error, message string) *Error {
	return Wrap(cause, CodeInternal, http.StatusInternalServerError, message)
}

// FromError normalises any error into an *Error. Untyped errors become
// INTERNAL_ERROR with the generic message so causes never leak to clients.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, ErrInternal.Message)
}
