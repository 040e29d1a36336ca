package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInternal marks unexpected failures.
	ErrInternal = errors.New("internal error")
)

// AppError is the single application error carried up to the HTTP layer.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound builds a 404 error for the named resource.
func NotFound(resource string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: resource + " not found", Err: ErrNotFound}
}

// Conflict builds a 409 error.
func Conflict(format string, args ...any) *AppError {
	return &AppError{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...), Err: ErrConflict}
}

// Validation builds a 400 error.
func Validation(format string, args ...any) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...), Err: ErrValidation}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message, Err: ErrUnauthorized}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Message: message, Err: ErrForbidden}
}

// Internal wraps an unexpected cause as a 500 error. The cause is kept for
// logging and never rendered to clients.
func Internal(cause error) *AppError {
	if cause == nil {
		cause = ErrInternal
	}
	return &AppError{Status: http.StatusInternalServerError, Message: "internal server error", Err: cause}
}

// StatusOf resolves the HTTP status carried by err.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	if StatusOf(err) >= http.StatusInternalServerError {
		return "internal server error"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
