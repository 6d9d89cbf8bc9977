package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrTokenInvalid ErrorCode = "TOKEN_INVALID"
	ErrForbidden    ErrorCode = "FORBIDDEN"

	ErrValidation   ErrorCode = "VALIDATION_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrInvalidID    ErrorCode = "INVALID_ID"

	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrInUse         ErrorCode = "IN_USE"

	ErrStorageDisabled ErrorCode = "STORAGE_DISABLED"
	ErrTimeout         ErrorCode = "TIMEOUT"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a structured API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new APIError
func New(code ErrorCode, message string, httpStatus int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// WithDetails adds details to an error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func Unauthorized(message string) *APIError {
	return New(ErrUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New(ErrForbidden, message, http.StatusForbidden)
}

func NotFound(resource string) *APIError {
	return New(ErrNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// AlreadyExists reports a duplicate key. The admin UI shows it inline on the
// form, so it is a 400 rather than a 409.
func AlreadyExists(message string) *APIError {
	return New(ErrAlreadyExists, message, http.StatusBadRequest)
}

// InUse reports a record that other records still reference.
func InUse(message string, count int64) *APIError {
	return New(ErrInUse, message, http.StatusBadRequest).WithDetails(map[string]int64{"count": count})
}

func Validation(message string) *APIError {
	return New(ErrValidation, message, http.StatusBadRequest)
}

func InvalidID(field string) *APIError {
	return New(ErrInvalidID, fmt.Sprintf("Invalid %s format", field), http.StatusBadRequest)
}

// StorageDisabled reports that object storage is not configured
func StorageDisabled() *APIError {
	return New(ErrStorageDisabled, "Image storage is not configured", http.StatusServiceUnavailable)
}

// Timeout reports a request that ran past its deadline
func Timeout() *APIError {
	return New(ErrTimeout, "The request took too long, please try again", http.StatusGatewayTimeout)
}

func Internal(message string) *APIError {
	return New(ErrInternal, message, http.StatusInternalServerError)
}

// As extracts an *APIError from err. Errors that carry none become a generic
// 500 so infrastructure details never reach the client.
func As(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("Internal server error")
}
