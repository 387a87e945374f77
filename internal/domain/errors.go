package domain

import (
	"fmt"
	"net/http"
)

// Error is a typed domain error carrying the HTTP status and machine
// code the API contract promises. The wrapped cause is logged server-side
// and never serialized to clients.
type Error struct {
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on the error code so wrapped copies still compare equal
// to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithCause returns a copy carrying err as the internal cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: e.Message, cause: err}
}

func newError(status int, code, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

var (
	ErrEmailExists        = newError(http.StatusBadRequest, "EMAIL_EXISTS", "An account with this email already exists")
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrAccountBlocked     = newError(http.StatusForbidden, "ACCOUNT_BLOCKED", "This account has been blocked")
	ErrInvalidOTP         = newError(http.StatusBadRequest, "INVALID_OTP", "Invalid or expired code")
	ErrInvalidCode        = newError(http.StatusBadRequest, "INVALID_CODE", "Invalid or expired code")
	ErrInvalidToken       = newError(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	ErrSamePassword       = newError(http.StatusBadRequest, "SAME_PASSWORD", "New password must be different from the current password")
	ErrInvalidPassword    = newError(http.StatusBadRequest, "INVALID_PASSWORD", "Current password is incorrect")
	ErrUserNotFound       = newError(http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrEmailVerified      = newError(http.StatusBadRequest, "EMAIL_ALREADY_VERIFIED", "Email is already verified")
	ErrRateLimited        = newError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later")
	ErrContentNotFound    = newError(http.StatusNotFound, "CONTENT_NOT_FOUND", "Content not found")
	ErrForbidden          = newError(http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource")
	ErrValidation         = newError(http.StatusBadRequest, "INVALID_INPUT", "Invalid input")
)

// Validation returns an INVALID_INPUT error with a request-specific message.
func Validation(message string) *Error {
	return newError(http.StatusBadRequest, "INVALID_INPUT", message)
}

// Internal wraps an unexpected failure with a workflow-specific code.
// The client sees only the code and a generic message.
func Internal(code string, err error) *Error {
	return &Error{
		Code:    code,
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong. Please try again later",
		cause:   err,
	}
}
