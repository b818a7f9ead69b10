package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeMalformedToken ErrorType = "malformed_token"
	ErrorTypeCsrfMismatch   ErrorType = "csrf_mismatch"
	ErrorTypeProvider       ErrorType = "provider"
	ErrorTypeSessionStore   ErrorType = "session_store"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}

// NewMalformedTokenError creates an error for an identity token that could not be decoded
func NewMalformedTokenError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeMalformedToken,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Internal:   internal,
	}
}

// NewCsrfMismatchError creates an error for a missing or mismatched state parameter
func NewCsrfMismatchError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeCsrfMismatch,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewProviderError creates an error for an error code returned by the identity provider
func NewProviderError(code string) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("OAuth error: %s", code),
		StatusCode: http.StatusUnauthorized,
		Details:    map[string]interface{}{"code": code},
	}
}

// NewSessionStoreError creates an error for a session store rejection
func NewSessionStoreError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeSessionStore,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewTransportError creates an error for a network-level failure.
// Callers treat it identically to a session store error.
func NewTransportError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}
