package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrConflict               = errors.New("resource already exists")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidCode            = errors.New("invalid or expired confirmation code")
	ErrAlreadyConfirmed       = errors.New("email already confirmed")
	ErrTransient              = errors.New("temporarily unavailable")
	ErrDispatcherNotConnected = errors.New("job dispatcher not connected")
	ErrJobStateConflict       = errors.New("job state conflict")
)

// ErrValidation is the validation class of ErrInvalidInput.
var ErrValidation = ErrInvalidInput

// Machine readable error codes
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidCode        = "INVALID_CONFIRMATION_CODE"
	CodeAlreadyConfirmed   = "EMAIL_ALREADY_CONFIRMED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

// Validation is BadRequest under the validation taxonomy name
func Validation(message string) *AppError {
	return BadRequest(message)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrConflict)
}

// FieldConflict reports a unique field already taken, e.g. email or username.
func FieldConflict(field string) *AppError {
	return Conflict(fmt.Sprintf("User with this %s already exists", field))
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func PermissionDenied(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrPermissionDenied)
}

func InvalidCredentials() *AppError {
	return NewAppError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", ErrInvalidCredentials)
}

func InvalidCode() *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidCode, "Invalid or expired confirmation code", ErrInvalidCode)
}

func AlreadyConfirmed() *AppError {
	return NewAppError(http.StatusBadRequest, CodeAlreadyConfirmed, "Email already confirmed", ErrAlreadyConfirmed)
}

// Transient wraps an infrastructure failure the caller may retry.
func Transient(message string, err error) *AppError {
	return NewAppError(http.StatusServiceUnavailable, CodeServiceUnavailable, message, fmt.Errorf("%w: %w", ErrTransient, err))
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// FromError maps any error to an AppError, translating domain sentinels to
// their HTTP status. Unknown errors become 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, "Resource not found", err)
	case errors.Is(err, ErrConflict):
		return NewAppError(http.StatusConflict, CodeConflict, err.Error(), err)
	case errors.Is(err, ErrInvalidCredentials):
		return NewAppError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", err)
	case errors.Is(err, ErrInvalidCode):
		return NewAppError(http.StatusBadRequest, CodeInvalidCode, "Invalid or expired confirmation code", err)
	case errors.Is(err, ErrAlreadyConfirmed):
		return NewAppError(http.StatusBadRequest, CodeAlreadyConfirmed, "Email already confirmed", err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", err)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrPermissionDenied):
		return NewAppError(http.StatusForbidden, CodeForbidden, "Forbidden", err)
	case errors.Is(err, ErrTransient), errors.Is(err, ErrDispatcherNotConnected):
		return NewAppError(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable", err)
	case errors.Is(err, ErrJobStateConflict):
		return NewAppError(http.StatusConflict, CodeConflict, err.Error(), err)
	default:
		return InternalError(err)
	}
}
