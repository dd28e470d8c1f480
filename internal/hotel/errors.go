package hotel

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeValidation       ErrorCode = "VALIDATION"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeReferenceExpired ErrorCode = "REFERENCE_EXPIRED"
	ErrorCodeProviderFailure  ErrorCode = "PROVIDER_FAILURE"
	ErrorCodeProviderDeclined ErrorCode = "PROVIDER_DECLINED"
	ErrorCodeWrongState       ErrorCode = "WRONG_STATE"
	ErrorCodePersistence      ErrorCode = "PERSISTENCE"
	ErrorCodeInternalFailure  ErrorCode = "INTERNAL_FAILURE"
)

// AppError carries the HTTP status and machine code alongside the message so
// handlers can map domain failures without switching on error strings.
type AppError struct {
	Status  int
	Code    ErrorCode
	Message string
	Err     error
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

func NewValidationError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: ErrorCodeValidation, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: ErrorCodeNotFound, Message: msg}
}

// NewReferenceExpiredError is distinct from not-found so callers know to
// re-search instead of retrying the same reference.
func NewReferenceExpiredError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: ErrorCodeReferenceExpired, Message: msg}
}

func NewWrongStateError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: ErrorCodeWrongState, Message: msg}
}

func NewProviderFailureError(provider string, err error) *AppError {
	return &AppError{
		Status:  http.StatusBadGateway,
		Code:    ErrorCodeProviderFailure,
		Message: fmt.Sprintf("provider %s failed", provider),
		Err:     err,
	}
}

func NewProviderDeclinedError(provider, reason string) *AppError {
	return &AppError{
		Status:  http.StatusConflict,
		Code:    ErrorCodeProviderDeclined,
		Message: fmt.Sprintf("provider %s declined: %s", provider, reason),
	}
}

func NewPersistenceError(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    ErrorCodePersistence,
		Message: "failed to persist booking record",
		Err:     err,
	}
}

func NewInternalError(msg string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: ErrorCodeInternalFailure, Message: msg, Err: err}
}
