package errors

import (
	stderrors "errors"
	"net/http"
)

// Error is the domain error type carrying a code.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Client-facing message
	Cause   error  // Wrapped underlying error
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

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// BadRequest is shorthand for a CodeBadRequest error.
func BadRequest(message string) *Error {
	return New(CodeBadRequest, message)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// HTTPStatus resolves the HTTP status for any error; errors without a code
// map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if domainErr, ok := As(err); ok {
		return domainErr.Code.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// PublicMessage returns a message safe to show to API clients. Internal
// errors collapse to the generic status text.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if domainErr, ok := As(err); ok && domainErr.Code.HTTPStatus() < http.StatusInternalServerError {
		return domainErr.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
