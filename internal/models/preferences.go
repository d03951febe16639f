package models

// Supported template languages.
const (
	LanguageArabic  = "ar"
	LanguageEnglish = "en"
)

// QuietHours is a recipient-configured local time window during which
// non-critical notifications are deferred. Start and End are zero-padded
// "HH:MM" clock strings; a window with Start > End wraps midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// NotificationPreferences is the per-recipient delivery preference record.
// The dispatcher never mutates it.
type NotificationPreferences struct {
	RecipientID string                    `json:"recipientId"`
	Channels    map[DeliveryChannel]bool  `json:"channels"`
	Types       map[NotificationType]bool `json:"types"`
	QuietHours  QuietHours                `json:"quietHours"`
	Language    string                    `json:"language"`
}

// ChannelEnabled reports whether the recipient accepts the channel at all.
// A channel absent from the map is not enabled.
func (p *NotificationPreferences) ChannelEnabled(ch DeliveryChannel) bool {
	return p.Channels[ch]
}

// TypeEnabled reports whether the recipient wants this notification type.
// Types the record never mentions stay enabled; only an explicit opt-out
// disables them.
func (p *NotificationPreferences) TypeEnabled(t NotificationType) bool {
	enabled, ok := p.Types[t]
	if !ok {
		return true
	}
	return enabled
}
