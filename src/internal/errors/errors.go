package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies application errors so callers can branch on the
// category instead of matching message strings.
type Kind string

const (
	KindAdmissionDenied Kind = "admission_denied"
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found_error"
	KindIntegrity       Kind = "integrity_fault"
	KindAuth            Kind = "auth_fault"
	KindTransfer        Kind = "transfer_fault"
	KindStorage         Kind = "storage_error"
	KindServer          Kind = "server_error"
)

// AppError is the carrier for all expected failure conditions. Unexpected
// faults (raw I/O errors and the like) propagate as plain errors and are
// mapped to KindServer at the boundary.
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As chains
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new application error
func New(kind Kind, message string, statusCode int) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	e.Details[key] = value
	return e
}

// AdmissionDenied signals a rate-limit rejection. The caller may retry
// after the embedded delay.
func AdmissionDenied(retryAfter time.Duration) *AppError {
	return New(KindAdmissionDenied, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetail("retry_after_seconds", int(retryAfter.Seconds()))
}

// Validation signals malformed input for a single invocation
func Validation(message string) *AppError {
	return New(KindValidation, message, http.StatusBadRequest)
}

// NotFound signals an unknown backup id or a missing artifact
func NotFound(resource, id string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// Integrity signals a mismatch between the catalog and the file on disk.
// This is alarming: it implies corruption or tampering, not a user error.
func Integrity(message string) *AppError {
	return New(KindIntegrity, message, http.StatusInternalServerError)
}

// Auth signals an unauthenticated or unauthorized request
func Auth(message string, statusCode int) *AppError {
	return New(KindAuth, message, statusCode)
}

// Transfer signals a stream read/write failure mid-download
func Transfer(message string, cause error) *AppError {
	return New(KindTransfer, message, http.StatusInternalServerError).WithCause(cause)
}

// Storage wraps unexpected catalog/filesystem faults
func Storage(message string, cause error) *AppError {
	return New(KindStorage, message, http.StatusInternalServerError).WithCause(cause)
}

// KindOf extracts the kind from an error chain, defaulting to KindServer
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindServer
}

// StatusOf extracts the HTTP status from an error chain, defaulting to 500
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsKind reports whether any error in the chain carries the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
