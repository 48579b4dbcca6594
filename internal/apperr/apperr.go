package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable classification of a rejection.
type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeVoucherRejected       Code = "VOUCHER_REJECTED"
	CodeStorageConflict       Code = "STORAGE_CONFLICT"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
)

// Error carries a code plus a human-readable reason suitable for UI display.
type Error struct {
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of err, or CodeDependencyUnavailable for
// errors that did not originate in this module's taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDependencyUnavailable
}

// ReasonOf returns the user-facing reason, falling back to the raw error text.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a taxonomy code to the response status used by the HTTP layer.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidTransition, CodeVoucherRejected:
		return http.StatusUnprocessableEntity
	case CodeStorageConflict:
		return http.StatusConflict
	case CodeDependencyUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
