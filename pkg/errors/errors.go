package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the fixed failure categories the
// processing core surfaces to callers.
type Kind string

const (
	KindInvalidRequest       Kind = "invalid_request"
	KindMalformedDocument    Kind = "malformed_document"
	KindUnrecoverable        Kind = "unrecoverable"
	KindEncryptedDocument    Kind = "encrypted_document"
	KindWrongPassword        Kind = "wrong_password"
	KindNotEncrypted         Kind = "not_encrypted"
	KindAdapterTimeout       Kind = "adapter_timeout"
	KindAdapterFailure       Kind = "adapter_failure"
	KindUnsupportedOperation Kind = "unsupported_operation"
	KindTimeout              Kind = "timeout"
	KindNotFound             Kind = "not_found"
	KindInternal             Kind = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a validation error surfaced before any engine runs
func NewInvalidRequest(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Kind:       KindInvalidRequest,
		Message:    message,
		Detail:     detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewMalformedDocument creates an error for input bytes with no recoverable page tree
func NewMalformedDocument(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindMalformedDocument,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewUnrecoverable creates an error for documents repair cannot reconstruct
func NewUnrecoverable(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindUnrecoverable,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewEncryptedDocument creates an error for password-gated input
func NewEncryptedDocument(message string) *AppError {
	return &AppError{
		Kind:       KindEncryptedDocument,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewWrongPassword creates an error for a password that fails verification
func NewWrongPassword(message string) *AppError {
	return &AppError{
		Kind:       KindWrongPassword,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotEncrypted creates an error for unlocking a document with no encryption state
func NewNotEncrypted(message string) *AppError {
	return &AppError{
		Kind:       KindNotEncrypted,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewAdapterTimeout creates an error for a hung external converter call
func NewAdapterTimeout(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindAdapterTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewAdapterFailure creates an error for an external converter that failed after retry
func NewAdapterFailure(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindAdapterFailure,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewUnsupportedOperation creates an error for an unknown operation kind
func NewUnsupportedOperation(message string) *AppError {
	return &AppError{
		Kind:       KindUnsupportedOperation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewTimeout creates an error for an orchestrator wall-clock abort
func NewTimeout(message string) *AppError {
	return &AppError{
		Kind:       KindTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
	}
}

// NewNotFound creates a new not found error
func NewNotFound(message string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternal creates a new internal server error
func NewInternal(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsKind checks if the error is of a specific kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf returns the kind recorded on an error, or KindInternal for plain errors
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
