// Package errors provides standardized error handling for the attendance
// question-answering pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidIntent   ErrorCode = "INVALID_INTENT"
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"

	ErrCodeSectionNotFound ErrorCode = "SECTION_NOT_FOUND"
	ErrCodeStudentNotFound ErrorCode = "STUDENT_NOT_FOUND"

	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"
	ErrCodeRemoteTimeout     ErrorCode = "REMOTE_TIMEOUT"
	ErrCodeRemoteBadReply    ErrorCode = "REMOTE_BAD_REPLY"

	ErrCodeStoreConnectionFailed ErrorCode = "STORE_CONNECTION_FAILED"
	ErrCodeStoreQueryFailed      ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreQueryTimeout     ErrorCode = "STORE_QUERY_TIMEOUT"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeConfigError ErrorCode = "CONFIG_ERROR"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidIntentError marks a classifier value outside the closed intent set.
func NewInvalidIntentError(value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidIntent,
		Message:   "Intent outside the supported set",
		Details:   fmt.Sprintf("intent: %s", value),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError marks a missing or malformed required parameter.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationError,
		Message:   "Required parameter missing or invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSectionNotFoundError creates a non-retryable lookup error.
func NewSectionNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSectionNotFound,
		Message:   "Section not found",
		Details:   fmt.Sprintf("section: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStudentNotFoundError creates a non-retryable lookup error.
func NewStudentNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStudentNotFound,
		Message:   "Student not found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteUnavailableError wraps a failed remote assistant call. The caller
// always falls back to the deterministic path, so this is never user-facing.
func NewRemoteUnavailableError(phase string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteUnavailable,
		Message:   "Remote assistant call failed",
		Details:   fmt.Sprintf("phase: %s, error: %s", phase, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteTimeoutError creates a retryable remote timeout error.
func NewRemoteTimeoutError(phase string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteTimeout,
		Message:   "Remote assistant call timed out",
		Details:   fmt.Sprintf("phase: %s", phase),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteBadReplyError marks a remote reply that failed schema validation.
func NewRemoteBadReplyError(phase, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRemoteBadReply,
		Message:   "Remote assistant returned an unusable reply",
		Details:   fmt.Sprintf("phase: %s, %s", phase, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreConnectionFailedError creates a retryable database connection error.
func NewStoreConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreConnectionFailed,
		Message:   "Attendance store connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError creates a retryable query execution error.
func NewStoreQueryFailedError(capability string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Attendance store query error",
		Details:   fmt.Sprintf("capability: %s, error: %s", capability, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryTimeoutError creates a retryable query timeout error.
func NewStoreQueryTimeoutError(capability string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryTimeout,
		Message:   "Attendance store query timeout",
		Details:   fmt.Sprintf("capability: %s", capability),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError marks a caller that exceeded the chat usage limits.
func NewRateLimitedError(caller string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "AI usage limit reached. Please try later.",
		Details:   fmt.Sprintf("caller: %s", caller),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigError creates a non-retryable configuration error.
func NewConfigError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigError,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
