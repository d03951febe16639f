package channels

import (
	"strconv"
	"strings"

	"family-notify/internal/models"
	"family-notify/internal/notification/template"

	"firebase.google.com/go/v4/messaging"
)

// The two provider error codes that mean a registration token is gone for
// good. Only these warrant removal; every other code (rate limits, internal
// errors, quota) leaves the token in place.
const (
	fcmErrInvalidRegistration = "messaging/invalid-registration-token"
	fcmErrUnregistered        = "messaging/registration-token-not-registered"
)

// ShouldRemoveToken classifies a provider error as invalid-token or not, so
// nothing outside this package depends on FCM's error vocabulary.
func ShouldRemoveToken(err error) bool {
	if err == nil {
		return false
	}
	if messaging.IsUnregistered(err) {
		return true
	}
	text := err.Error()
	return strings.Contains(text, fcmErrInvalidRegistration) || strings.Contains(text, fcmErrUnregistered)
}

// buildMessage shapes one FCM message: high priority and default sound on
// Android, default sound and badge passthrough on iOS.
func buildMessage(token string, msg *template.RenderedMessage) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    msg.TemplateData,
		Android: androidConfig(),
		APNS:    apnsConfig(msg),
	}
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound: "default",
		},
	}
}

func apnsConfig(msg *template.RenderedMessage) *messaging.APNSConfig {
	aps := &messaging.Aps{
		Sound: "default",
	}
	if raw, ok := msg.TemplateData["badgeCount"]; ok {
		if badge, err := strconv.Atoi(raw); err == nil {
			aps.Badge = &badge
		}
	}
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{Aps: aps},
	}
}

func activeTokenStrings(tokens []models.DeviceToken) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Token)
	}
	return out
}
