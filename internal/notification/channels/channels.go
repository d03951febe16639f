// Package channels implements the delivery channel senders. Every sender
// wraps one provider behind the same result contract: provider failures are
// captured in the attempt record, never raised as Go errors, so the
// dispatcher can fall through to the next channel.
package channels

import (
	"context"
	"time"

	"family-notify/internal/common/metrics"
	"family-notify/internal/models"
	"family-notify/internal/notification/template"
)

// Sender is the uniform channel contract. A failed attempt should carry a
// non-nil Error describing the failure, though consumers must tolerate its
// absence.
type Sender interface {
	Channel() models.DeliveryChannel
	Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt
}

// Attempt error codes shared across senders.
const (
	ErrCodeChannelDisabled = "channel-disabled"
	ErrCodeMissingPhone    = "missing-phone"
	ErrCodeMissingEmail    = "missing-email"
	ErrCodeProviderError   = "provider-error"
	ErrCodeNetworkError    = "network-error"
	ErrCodeNoActiveDevices = "no-active-devices"
	ErrCodeAllDevicesFail  = "all-devices-failed"
	ErrCodeTokenStore      = "token-store-error"
	ErrCodeBatchTooLarge   = "batch-too-large"
)

func successAttempt(ch models.DeliveryChannel, messageID string) *models.DeliveryAttempt {
	metrics.ChannelAttemptsTotal.WithLabelValues(string(ch), "success").Inc()
	return &models.DeliveryAttempt{
		Channel:   ch,
		Success:   true,
		MessageID: messageID,
		Timestamp: time.Now().UTC(),
	}
}

func failedAttempt(ch models.DeliveryChannel, code, message string) *models.DeliveryAttempt {
	metrics.ChannelAttemptsTotal.WithLabelValues(string(ch), "failure").Inc()
	return &models.DeliveryAttempt{
		Channel:   ch,
		Success:   false,
		Error:     &models.AttemptError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	}
}
