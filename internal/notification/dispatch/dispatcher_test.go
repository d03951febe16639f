// internal/notification/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"family-notify/internal/common/logger"
	"family-notify/internal/models"
	"family-notify/internal/notification/channels"
	"family-notify/internal/notification/preferences"
	"family-notify/internal/notification/template"

	"github.com/stretchr/testify/assert"
)

type mockRecipientLookup struct {
	GetRecipientFunc func(ctx context.Context, id string) (*models.Recipient, error)
}

func (m *mockRecipientLookup) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	return m.GetRecipientFunc(ctx, id)
}

type mockResolver struct {
	prefs *models.NotificationPreferences
}

func (m *mockResolver) Resolve(ctx context.Context, recipientID string) *models.NotificationPreferences {
	if m.prefs != nil {
		return m.prefs
	}
	return preferences.Defaults(recipientID)
}

// fakeSender records the messages it was asked to deliver and returns a
// scripted attempt per call.
type fakeSender struct {
	channel  models.DeliveryChannel
	attempts []*models.DeliveryAttempt
	received []*template.RenderedMessage
}

func (f *fakeSender) Channel() models.DeliveryChannel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt {
	f.received = append(f.received, msg)
	attempt := f.attempts[0]
	if len(f.attempts) > 1 {
		f.attempts = f.attempts[1:]
	}
	return attempt
}

func success(ch models.DeliveryChannel) *models.DeliveryAttempt {
	return &models.DeliveryAttempt{Channel: ch, Success: true, MessageID: "msg-" + string(ch), Timestamp: time.Now()}
}

func failure(ch models.DeliveryChannel, code string) *models.DeliveryAttempt {
	return &models.DeliveryAttempt{
		Channel:   ch,
		Success:   false,
		Error:     &models.AttemptError{Code: code, Message: code},
		Timestamp: time.Now(),
	}
}

func foundRecipient() *mockRecipientLookup {
	return &mockRecipientLookup{
		GetRecipientFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
			return &models.Recipient{ID: id, Name: "Ahmed", Phone: "+966501234567"}, nil
		},
	}
}

func fixedClock(hhmm string) func() time.Time {
	parsed, _ := time.Parse("15:04", hhmm)
	return func() time.Time {
		return time.Date(2026, 2, 3, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	}
}

func TestDispatch_FirstChannelSucceeds(t *testing.T) {
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}
	push := &fakeSender{channel: models.ChannelPush, attempts: []*models.DeliveryAttempt{success(models.ChannelPush)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{whatsapp, push}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ChannelWhatsApp, result.DeliveredVia)
	assert.Len(t, result.Attempts, 1)
	assert.NotEmpty(t, result.DispatchID)
	assert.Empty(t, result.Reason)

	// Delivery stops at the first success.
	assert.Len(t, whatsapp.received, 1)
	assert.Empty(t, push.received)
}

func TestDispatch_FallsThroughToNextChannel(t *testing.T) {
	whatsapp := &fakeSender{
		channel:  models.ChannelWhatsApp,
		attempts: []*models.DeliveryAttempt{failure(models.ChannelWhatsApp, channels.ErrCodeProviderError)},
	}
	push := &fakeSender{channel: models.ChannelPush, attempts: []*models.DeliveryAttempt{success(models.ChannelPush)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{whatsapp, push}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ChannelPush, result.DeliveredVia)
	assert.Len(t, result.Attempts, 2)
	assert.False(t, result.Attempts[0].Success)
	assert.True(t, result.Attempts[1].Success)
}

func TestDispatch_AllChannelsFail(t *testing.T) {
	whatsapp := &fakeSender{
		channel:  models.ChannelWhatsApp,
		attempts: []*models.DeliveryAttempt{failure(models.ChannelWhatsApp, channels.ErrCodeProviderError)},
	}
	push := &fakeSender{
		channel:  models.ChannelPush,
		attempts: []*models.DeliveryAttempt{failure(models.ChannelPush, channels.ErrCodeNoActiveDevices)},
	}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{whatsapp, push}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.DeliveredVia)
	assert.Empty(t, result.Reason)
	assert.Len(t, result.Attempts, 2)
}

func TestDispatch_RecipientNotFoundIsASkip(t *testing.T) {
	lookup := &mockRecipientLookup{
		GetRecipientFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
			return nil, models.ErrRecipientNotFound
		},
	}
	d := NewDispatcher(lookup, &mockResolver{}, nil, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "ghost",
		Type:        models.TypeGeneralAnnouncement,
	})

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.SkipRecipientNotFound, result.Reason)
	assert.Empty(t, result.Attempts)
}

func TestDispatch_LookupFailureIsAnError(t *testing.T) {
	lookup := &mockRecipientLookup{
		GetRecipientFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
			return nil, errors.New("connection refused")
		},
	}
	d := NewDispatcher(lookup, &mockResolver{}, nil, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
	})

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestDispatch_InvalidType(t *testing.T) {
	d := NewDispatcher(foundRecipient(), &mockResolver{}, nil, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.NotificationType("carrier_pigeon"),
	})

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestDispatch_TypeDisabledByUser(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.Types[models.TypePaymentReminder] = false
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{whatsapp}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypePaymentReminder,
		Data:        map[string]string{"amount": "500"},
	})

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.SkipTypeDisabled, result.Reason)
	assert.Empty(t, whatsapp.received)
}

func TestDispatch_QuietHoursDefer(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.QuietHours = models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{whatsapp},
		logger.NewTestLogger(t), WithClock(fixedClock("23:30")))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.SkipQuietHours, result.Reason)
	assert.Empty(t, whatsapp.received)
}

func TestDispatch_CrisisAlertBypassesQuietHours(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.QuietHours = models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"}
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{whatsapp},
		logger.NewTestLogger(t), WithClock(fixedClock("23:30")))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeCrisisAlert,
		Data:        map[string]string{"message": "flood warning"},
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ChannelWhatsApp, result.DeliveredVia)
}

func TestDispatch_NoChannelsEnabled(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.Channels = map[models.DeliveryChannel]bool{}
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{whatsapp}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.SkipNoChannels, result.Reason)
	assert.Empty(t, result.Attempts)
}

func TestDispatch_DisabledChannelIsNotAttempted(t *testing.T) {
	// Default preferences leave SMS off; a dispatcher holding an SMS sender
	// must still never call it.
	sms := &fakeSender{channel: models.ChannelSMS, attempts: []*models.DeliveryAttempt{success(models.ChannelSMS)}}
	push := &fakeSender{channel: models.ChannelPush, attempts: []*models.DeliveryAttempt{success(models.ChannelPush)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{sms, push}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ChannelPush, result.DeliveredVia)
	assert.Empty(t, sms.received)
}

func TestDispatch_RendersInPreferredLanguage(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.Language = models.LanguageEnglish
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{whatsapp}, logger.NewTestLogger(t))

	_, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeEventInvitation,
		Data:        map[string]string{"eventName": "Annual Gathering"},
	})

	assert.NoError(t, err)
	assert.Len(t, whatsapp.received, 1)
	msg := whatsapp.received[0]
	assert.Equal(t, "en", msg.Language)
	assert.Equal(t, "event_invitation_en", msg.ChannelTemplateID)

	// The recipient name is injected when the caller leaves it out.
	assert.Contains(t, msg.Body, "Ahmed")
	assert.Contains(t, msg.Body, "Annual Gathering")
}

func TestDispatch_CallerDataIsNotMutated(t *testing.T) {
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{whatsapp}, logger.NewTestLogger(t))

	data := map[string]string{"eventName": "Annual Gathering"}
	_, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeEventInvitation,
		Data:        data,
	})

	assert.NoError(t, err)
	// The injected recipient name lands in a copy, never in the caller's map.
	assert.Equal(t, map[string]string{"eventName": "Annual Gathering"}, data)
	assert.Contains(t, whatsapp.received[0].Body, "Ahmed")
}

func TestDispatch_FailedAttemptWithoutError(t *testing.T) {
	whatsapp := &fakeSender{
		channel:  models.ChannelWhatsApp,
		attempts: []*models.DeliveryAttempt{{Channel: models.ChannelWhatsApp, Success: false, Timestamp: time.Now()}},
	}
	push := &fakeSender{channel: models.ChannelPush, attempts: []*models.DeliveryAttempt{success(models.ChannelPush)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{}, []channels.Sender{whatsapp, push}, logger.NewTestLogger(t))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ChannelPush, result.DeliveredVia)
}

func TestDispatch_CustomChannelPriority(t *testing.T) {
	prefs := preferences.Defaults("member-1")
	prefs.Channels[models.ChannelEmail] = true
	email := &fakeSender{channel: models.ChannelEmail, attempts: []*models.DeliveryAttempt{success(models.ChannelEmail)}}
	whatsapp := &fakeSender{channel: models.ChannelWhatsApp, attempts: []*models.DeliveryAttempt{success(models.ChannelWhatsApp)}}

	d := NewDispatcher(foundRecipient(), &mockResolver{prefs: prefs}, []channels.Sender{email, whatsapp},
		logger.NewTestLogger(t),
		WithChannelPriority([]models.DeliveryChannel{models.ChannelEmail, models.ChannelWhatsApp}))

	result, err := d.Dispatch(context.Background(), Request{
		RecipientID: "member-1",
		Type:        models.TypeGeneralAnnouncement,
		Data:        map[string]string{"message": "hello"},
	})

	assert.NoError(t, err)
	assert.Equal(t, models.ChannelEmail, result.DeliveredVia)
	assert.Empty(t, whatsapp.received)
}
