// Package errors provides standardized error handling for the notification core.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Expected business outcomes. Never logged as failures.
	ErrCodeRecipientNotFound  ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodeTypeDisabledByUser ErrorCode = "TYPE_DISABLED_BY_USER"
	ErrCodeDeferredQuietHours ErrorCode = "DEFERRED_QUIET_HOURS"
	ErrCodeNoChannelsEnabled  ErrorCode = "NO_CHANNELS_ENABLED"
	ErrCodeChannelDisabled    ErrorCode = "CHANNEL_DISABLED"

	// Per-channel delivery failures. Folded into the attempt record.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeNoActiveDevices        ErrorCode = "NO_ACTIVE_DEVICES"
	ErrCodeInvalidDeviceToken     ErrorCode = "INVALID_DEVICE_TOKEN"

	// Infrastructure failures. These surface to the caller.
	ErrCodeTemplateNotFound      ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodePreferenceLoadFailed  ErrorCode = "PREFERENCE_LOAD_FAILED"
	ErrCodeRecipientLookupFailed ErrorCode = "RECIPIENT_LOOKUP_FAILED"
	ErrCodeTokenStoreFailed      ErrorCode = "TOKEN_STORE_FAILED"
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

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(notificationType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "No template registered for notification type",
		Details:   fmt.Sprintf("type: %s", notificationType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferenceLoadFailedError creates a retryable preference store error.
// The resolver degrades to defaults instead of surfacing this to dispatch.
func NewPreferenceLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceLoadFailed,
		Message:   "Preference store read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientLookupFailedError creates a retryable recipient store error.
// Unlike a lookup miss, this is a genuine infrastructure failure.
func NewRecipientLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientLookupFailed,
		Message:   "Recipient lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenStoreFailedError creates a retryable device token store error.
func NewTokenStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenStoreFailed,
		Message:   "Device token store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsExpectedOutcome reports whether a code is a normal business outcome that
// must never be escalated or logged as a failure.
func IsExpectedOutcome(code ErrorCode) bool {
	switch code {
	case ErrCodeRecipientNotFound,
		ErrCodeTypeDisabledByUser,
		ErrCodeDeferredQuietHours,
		ErrCodeNoChannelsEnabled,
		ErrCodeChannelDisabled:
		return true
	}
	return false
}

// GetRetryCount returns the recommended retry count for upstream jobs.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNotificationSendFailed,
		ErrCodePreferenceLoadFailed,
		ErrCodeRecipientLookupFailed,
		ErrCodeTokenStoreFailed:
		return 3

	default:
		return 0 // Business outcomes: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
