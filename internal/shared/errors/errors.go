package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/riskcalc/platform/internal/qdiabetes"
)

// Common error types
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternal       = errors.New("internal error")
	ErrValidation     = errors.New("validation error")
	ErrRateLimited    = errors.New("rate limited")
	ErrPayment        = errors.New("payment required")
	ErrUnavailable    = errors.New("service unavailable")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Validation creates a validation error with field details
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// TooManyRequests creates a rate limit error
func TooManyRequests(message string) *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    message,
		Code:       "RATE_LIMITED",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// PaymentRequired reports that an upstream provider refused for billing reasons
func PaymentRequired(message string) *AppError {
	return &AppError{
		Err:        ErrPayment,
		Message:    message,
		Code:       "PAYMENT_REQUIRED",
		HTTPStatus: http.StatusPaymentRequired,
	}
}

// Unavailable creates an error for a dependency that is not configured or not reachable
func Unavailable(service string) *AppError {
	return &AppError{
		Err:        ErrUnavailable,
		Message:    fmt.Sprintf("%s is not available", service),
		Code:       "SERVICE_UNAVAILABLE",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]string{"service": service},
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// FromDomain maps an error returned by the risk engine or a service onto an
// AppError. Errors that are already AppErrors pass through unchanged.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var inputErr *qdiabetes.InputError
	if errors.As(err, &inputErr) {
		return Validation(inputErr.Error(), map[string]string{inputErr.Field: inputErr.Reason})
	}
	if errors.Is(err, qdiabetes.ErrInvalidInput) {
		return Validation(err.Error(), nil)
	}
	return Internal(err)
}
