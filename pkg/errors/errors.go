package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthenticated indicates the backend rejected the session credential
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeNetwork indicates the backend could not be reached at all
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeMalformedPayload indicates a response body that is not the expected shape
	ErrorTypeMalformedPayload ErrorType = "MALFORMED_PAYLOAD"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by type so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// ErrAuthExpired is returned after a backend 401 has forced a logout.
// Callers must not read a body and should send the user to the login view.
var ErrAuthExpired = &AppError{
	Type:    ErrorTypeUnauthenticated,
	Message: "session expired",
}

// NetworkError is a transport failure: no HTTP response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrorTypeNetwork, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RequestFailed is a non-2xx, non-401 HTTP response. Body holds the raw
// response text verbatim for diagnostics.
type RequestFailed struct {
	Status int
	Body   string
}

func (e *RequestFailed) Error() string {
	return fmt.Sprintf("%s: request failed with status %d: %s", ErrorTypeExternal, e.Status, e.Body)
}

// MalformedPayload marks a 2xx body that could not be decoded.
type MalformedPayload struct {
	Reason string
}

func (e *MalformedPayload) Error() string {
	return fmt.Sprintf("%s: %s", ErrorTypeMalformedPayload, e.Reason)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// AsRequestFailed unwraps a *RequestFailed from err.
func AsRequestFailed(err error) (*RequestFailed, bool) {
	var rf *RequestFailed
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation reports whether err is a validation AppError.
func IsValidation(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Type == ErrorTypeValidation
}
