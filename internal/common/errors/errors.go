// Package errors provides standardized error handling for the notifier.
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
	// Settings document could not be read or does not exist. Treated as
	// "notifications disabled" by the listener (fail-safe default).
	ErrCodeSettingsUnavailable ErrorCode = "SETTINGS_UNAVAILABLE"

	// Notifications enabled but no destination email configured, or the
	// report flow found no email at all. No send is attempted.
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"

	// The mail relay rejected the request or was unreachable.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"

	// Relay payload failed schema validation before the network call.
	ErrCodePayloadInvalid ErrorCode = "PAYLOAD_INVALID"

	// Analytics snapshot missing or unreadable for the report flow.
	ErrCodeAnalyticsUnavailable ErrorCode = "ANALYTICS_UNAVAILABLE"

	// Order feed subscription failed or was closed by the transport.
	ErrCodeStreamFailed ErrorCode = "STREAM_FAILED"
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

// NewSettingsUnavailableError marks a failed settings read. Non-retryable from
// the caller's perspective: the listener treats it as disabled and moves on.
func NewSettingsUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSettingsUnavailable,
		Message:   "Notification settings could not be read",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotConfiguredError marks a missing destination email. Distinct from a
// dispatch failure so the UI can show a "configure your email" message.
func NewNotConfiguredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotConfigured,
		Message:   "No notification email configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError wraps a relay delivery failure.
func NewDispatchFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Mail relay dispatch failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError marks a relay payload that failed schema validation.
func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Relay payload failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnalyticsUnavailableError marks a missing or unreadable analytics snapshot.
func NewAnalyticsUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyticsUnavailable,
		Message:   "Sales analytics snapshot unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStreamFailedError marks an order feed subscription failure.
func NewStreamFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStreamFailed,
		Message:   "Order stream subscription failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}

// Normalize ensures any error is represented as a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
