// Package preferences persists per-member notification preferences.
package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"family-notify/internal/common/logger"
	"family-notify/internal/common/validation"
	"family-notify/internal/models"
)

type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithFields(map[string]interface{}{"store": "preferences"}),
	}
}

// GetPreferences loads the stored preference record for a member. A member
// with no record yields (nil, nil); the resolver synthesizes defaults in that
// case. Storage failures propagate so callers can decide how to degrade.
func (s *Store) GetPreferences(ctx context.Context, recipientID string) (*models.NotificationPreferences, error) {
	query := `SELECT channels, types, quiet_hours_enabled,
		COALESCE(quiet_hours_start, ''), COALESCE(quiet_hours_end, ''), COALESCE(language, '')
		FROM member_notification_preferences WHERE member_id = $1`

	var (
		channelsJSON []byte
		typesJSON    []byte
		quietEnabled bool
		quietStart   string
		quietEnd     string
		language     string
	)
	err := s.db.QueryRowContext(ctx, query, recipientID).Scan(
		&channelsJSON, &typesJSON, &quietEnabled, &quietStart, &quietEnd, &language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences for %s: %w", recipientID, err)
	}

	prefs := &models.NotificationPreferences{
		RecipientID: recipientID,
		Channels:    mapChannels(channelsJSON),
		Types:       mapTypes(typesJSON),
		Language:    normalizeLanguage(language),
	}

	// Quiet hours only count when both edges parse as clock strings.
	if quietEnabled && validation.ValidClock(quietStart) && validation.ValidClock(quietEnd) {
		prefs.QuietHours = models.QuietHours{
			Enabled: true,
			Start:   quietStart,
			End:     quietEnd,
		}
	}

	return prefs, nil
}

// legacyChannelNames tolerates the field spellings older clients wrote.
// Unknown keys are ignored.
var legacyChannelNames = map[string]models.DeliveryChannel{
	"whatsapp":           models.ChannelWhatsApp,
	"whatsApp":           models.ChannelWhatsApp,
	"whats_app":          models.ChannelWhatsApp,
	"sms":                models.ChannelSMS,
	"textMessage":        models.ChannelSMS,
	"text_message":       models.ChannelSMS,
	"push":               models.ChannelPush,
	"pushNotifications":  models.ChannelPush,
	"push_notifications": models.ChannelPush,
	"email":              models.ChannelEmail,
	"mail":               models.ChannelEmail,
}

// legacyTypeNames tolerates camelCase type keys from the old dashboard.
var legacyTypeNames = map[string]models.NotificationType{
	"event_invitation":     models.TypeEventInvitation,
	"eventInvitation":      models.TypeEventInvitation,
	"payment_receipt":      models.TypePaymentReceipt,
	"paymentReceipt":       models.TypePaymentReceipt,
	"payment_reminder":     models.TypePaymentReminder,
	"paymentReminder":      models.TypePaymentReminder,
	"crisis_alert":         models.TypeCrisisAlert,
	"crisisAlert":          models.TypeCrisisAlert,
	"general_announcement": models.TypeGeneralAnnouncement,
	"generalAnnouncement":  models.TypeGeneralAnnouncement,
	"rsvp_confirmation":    models.TypeRSVPConfirmation,
	"rsvpConfirmation":     models.TypeRSVPConfirmation,
}

func mapChannels(raw []byte) map[models.DeliveryChannel]bool {
	out := make(map[models.DeliveryChannel]bool)
	if len(raw) == 0 {
		return out
	}

	var stored map[string]bool
	if err := json.Unmarshal(raw, &stored); err != nil {
		return out
	}

	for key, enabled := range stored {
		if ch, ok := legacyChannelNames[key]; ok {
			out[ch] = enabled
		}
	}
	return out
}

func mapTypes(raw []byte) map[models.NotificationType]bool {
	out := make(map[models.NotificationType]bool)
	if len(raw) == 0 {
		return out
	}

	var stored map[string]bool
	if err := json.Unmarshal(raw, &stored); err != nil {
		return out
	}

	for key, enabled := range stored {
		if t, ok := legacyTypeNames[key]; ok {
			out[t] = enabled
		}
	}
	return out
}

func normalizeLanguage(lang string) string {
	if validation.ValidLanguage(lang) {
		return lang
	}
	return models.LanguageArabic
}
