// Package preferences resolves a recipient's notification preferences,
// synthesizing documented defaults when no record exists.
package preferences

import (
	"context"

	commonerrors "family-notify/internal/common/errors"
	"family-notify/internal/common/logger"
	"family-notify/internal/models"
)

// Store is the external preference record source. A recipient without a
// record yields (nil, nil).
type Store interface {
	GetPreferences(ctx context.Context, recipientID string) (*models.NotificationPreferences, error)
}

type Resolver struct {
	store Store
	log   logger.Logger
}

func NewResolver(store Store, log logger.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log.WithFields(map[string]interface{}{"component": "preference-resolver"}),
	}
}

// Resolve returns the stored preferences for a recipient, or the defaults
// when no record exists. A store failure also degrades to defaults; lookup
// problems must not block delivery, and stale or missing preferences are an
// accepted risk here.
func (r *Resolver) Resolve(ctx context.Context, recipientID string) *models.NotificationPreferences {
	if r.store != nil {
		prefs, err := r.store.GetPreferences(ctx, recipientID)
		if err != nil {
			loadErr := commonerrors.NewPreferenceLoadFailedError(err)
			r.log.Warn("preference load failed, using defaults", map[string]interface{}{
				"recipientId": recipientID,
				"errorCode":   string(loadErr.Code),
				"error":       loadErr.Error(),
			})
			return Defaults(recipientID)
		}
		if prefs != nil {
			return prefs
		}
	}
	return Defaults(recipientID)
}

// Defaults is the preference record synthesized for members who never
// customized their settings: WhatsApp and push on, SMS and email off, every
// notification type enabled, quiet hours disabled, Arabic copy.
func Defaults(recipientID string) *models.NotificationPreferences {
	return &models.NotificationPreferences{
		RecipientID: recipientID,
		Channels: map[models.DeliveryChannel]bool{
			models.ChannelWhatsApp: true,
			models.ChannelPush:     true,
			models.ChannelSMS:      false,
			models.ChannelEmail:    false,
		},
		Types: map[models.NotificationType]bool{
			models.TypeEventInvitation:     true,
			models.TypePaymentReceipt:      true,
			models.TypePaymentReminder:     true,
			models.TypeCrisisAlert:         true,
			models.TypeGeneralAnnouncement: true,
			models.TypeRSVPConfirmation:    true,
		},
		QuietHours: models.QuietHours{Enabled: false},
		Language:   models.LanguageArabic,
	}
}
