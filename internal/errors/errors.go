package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeInvalidInput      ErrCode = "INVALID_INPUT"
	ErrCodeNetworkFailure    ErrCode = "NETWORK_FAILURE"
	ErrCodeMalformedResponse ErrCode = "MALFORMED_RESPONSE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates an error for caller input rejected before any network call
func NewInvalidInputError(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNetworkError creates an error for connection failures, timeouts and non-2xx statuses
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetworkFailure,
		Message: message,
		Err:     err,
	}
}

// NewMalformedResponseError creates an error for a body that does not match the page envelope
func NewMalformedResponseError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedResponse,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return CodeOf(err) == ErrCodeInvalidInput
}

// IsRetryable reports whether another attempt at the same page may succeed.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNetworkFailure, ErrCodeMalformedResponse:
		return true
	}
	return false
}
