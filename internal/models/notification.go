package models

import "time"

// NotificationType identifies the business event behind a notification.
// The set is fixed; it drives template selection and per-type preference gating.
type NotificationType string

const (
	TypeEventInvitation     NotificationType = "event_invitation"
	TypePaymentReceipt      NotificationType = "payment_receipt"
	TypePaymentReminder     NotificationType = "payment_reminder"
	TypeCrisisAlert         NotificationType = "crisis_alert"
	TypeGeneralAnnouncement NotificationType = "general_announcement"
	TypeRSVPConfirmation    NotificationType = "rsvp_confirmation"
)

// AllNotificationTypes returns the fixed set of supported types.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeEventInvitation,
		TypePaymentReceipt,
		TypePaymentReminder,
		TypeCrisisAlert,
		TypeGeneralAnnouncement,
		TypeRSVPConfirmation,
	}
}

// Valid reports whether t is one of the supported notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeEventInvitation, TypePaymentReceipt, TypePaymentReminder,
		TypeCrisisAlert, TypeGeneralAnnouncement, TypeRSVPConfirmation:
		return true
	}
	return false
}

// DeliveryChannel is a delivery medium.
type DeliveryChannel string

const (
	ChannelWhatsApp DeliveryChannel = "whatsapp"
	ChannelSMS      DeliveryChannel = "sms"
	ChannelPush     DeliveryChannel = "push"
	ChannelEmail    DeliveryChannel = "email"
)

// DefaultChannelPriority is the order channels are attempted during dispatch.
// Email exists as a channel but is not part of the default attempt order.
func DefaultChannelPriority() []DeliveryChannel {
	return []DeliveryChannel{ChannelWhatsApp, ChannelSMS, ChannelPush}
}

// AttemptError captures a provider failure without escalating it.
type AttemptError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DeliveryAttempt records one channel try within a single dispatch.
// Attempts are ephemeral; nothing in the core persists them.
type DeliveryAttempt struct {
	Channel   DeliveryChannel `json:"channel"`
	Success   bool            `json:"success"`
	Error     *AttemptError   `json:"error,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SkipReason explains why a dispatch finished without delivering. These are
// expected business outcomes, not errors.
type SkipReason string

const (
	SkipRecipientNotFound SkipReason = "recipient_not_found"
	SkipTypeDisabled      SkipReason = "type_disabled_by_user"
	SkipQuietHours        SkipReason = "deferred_quiet_hours"
	SkipNoChannels        SkipReason = "no_channels_enabled"
)

// DispatchResult is the aggregate outcome of one notification dispatch.
type DispatchResult struct {
	DispatchID   string            `json:"dispatchId"`
	RecipientID  string            `json:"recipientId"`
	Type         NotificationType  `json:"type"`
	Success      bool              `json:"success"`
	DeliveredVia DeliveryChannel   `json:"deliveredVia,omitempty"`
	Reason       SkipReason        `json:"reason,omitempty"`
	Attempts     []DeliveryAttempt `json:"attempts"`
	StartedAt    time.Time         `json:"startedAt"`
	FinishedAt   time.Time         `json:"finishedAt"`
}
