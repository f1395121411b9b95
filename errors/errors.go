// Package errors provides the error taxonomy shared by the map packages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeInternal    = "INTERNAL_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeBadRequest  = "BAD_REQUEST"
	CodeValidation  = "VALIDATION_ERROR"
	CodeTransport   = "TRANSPORT_ERROR"
	CodeStaleResult = "STALE_RESULT"
	CodeInvalidDate = "INVALID_DATE"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimited = "RATE_LIMITED"
)

// AppError carries a machine-readable code alongside a human message.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails attaches details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Wrap wraps err with a code and message.
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates an AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

// NotFound creates a not found error for the named resource.
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a bad request error.
func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// ValidationWithDetails creates a validation error with per-field details.
func ValidationWithDetails(message string, details map[string]string) *AppError {
	return New(CodeValidation, message).WithDetails(details)
}

// Transport wraps a network or decoding failure talking to an external provider.
func Transport(err error, message string) *AppError {
	return Wrap(err, CodeTransport, message)
}

// Stale marks an async result that no longer matches the state that requested it.
func Stale(message string) *AppError {
	return New(CodeStaleResult, message)
}

// InvalidDate creates an error for an unparsable timestamp.
func InvalidDate(value string, err error) *AppError {
	return Wrap(err, CodeInvalidDate, fmt.Sprintf("invalid date %q", value))
}

// Unavailable creates a service unavailable error.
func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message)
}

// RateLimited creates a rate limited error.
func RateLimited(message string) *AppError {
	return New(CodeRateLimited, message)
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

// IsTransport reports whether err carries CodeTransport.
func IsTransport(err error) bool {
	return Code(err) == CodeTransport
}

// IsValidation reports whether err carries CodeValidation.
func IsValidation(err error) bool {
	return Code(err) == CodeValidation
}

// Code returns the error code or empty string.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
