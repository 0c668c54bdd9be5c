// Package domain defines the core domain models for proctree.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes use the format PT-<AREA>-<NNNN>; the numeric part loosely mirrors the
// HTTP status it maps to at the boundary.
type DomainError struct {
	Code    string // Error code (e.g., "PT-TASK-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Task Errors (TASK)
// ============================================================================

var (
	// ErrTaskNotFound indicates the requested task is not in the registry.
	ErrTaskNotFound = NewDomainError("PT-TASK-4040", "task not found")

	// ErrRootImmortal indicates an attempt to exit the root sentinel.
	ErrRootImmortal = NewDomainError("PT-TASK-4003", "root task cannot exit")

	// ErrTaskValidation indicates task field validation failed.
	ErrTaskValidation = NewDomainError("PT-TASK-4001", "task validation failed")
)

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrInvalidCapacity indicates a snapshot capacity below 1.
	ErrInvalidCapacity = NewDomainError("PT-SNAP-4001", "snapshot capacity must be at least 1")

	// ErrCapacityTooLarge indicates the record buffer could not be provisioned.
	ErrCapacityTooLarge = NewDomainError("PT-SNAP-5070", "snapshot buffer exceeds allocation limit")

	// ErrSnapshotNotFound indicates the archived snapshot does not exist.
	ErrSnapshotNotFound = NewDomainError("PT-SNAP-4040", "snapshot not found")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAPIKeyMissing indicates no API key was provided.
	ErrAPIKeyMissing = NewDomainError("PT-AUTH-4010", "api key not provided")

	// ErrAPIKeyInvalid indicates the API key is invalid or does not exist.
	ErrAPIKeyInvalid = NewDomainError("PT-AUTH-4011", "invalid api key")

	// ErrAPIKeyDisabled indicates the API key has been disabled.
	ErrAPIKeyDisabled = NewDomainError("PT-AUTH-4012", "api key disabled")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = NewDomainError("PT-AUTH-4030", "permission denied")

	// ErrAPIKeyNotFound indicates the API key was not found.
	ErrAPIKeyNotFound = NewDomainError("PT-AUTH-4040", "api key not found")

	// ErrAPIKeyConflict indicates the API key ID already exists.
	ErrAPIKeyConflict = NewDomainError("PT-AUTH-4090", "api key id conflict")

	// ErrRateLimited indicates too many requests for one API key.
	ErrRateLimited = NewDomainError("PT-AUTH-4290", "rate limit exceeded")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("PT-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("PT-ARG-1002", "missing required argument")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("PT-SYS-5000", "internal server error")

	// ErrStorageError indicates an archive storage layer error.
	ErrStorageError = NewDomainError("PT-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("PT-SYS-4000", "bad request")
)
