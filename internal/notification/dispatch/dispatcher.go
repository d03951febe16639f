// Package dispatch orchestrates a single notification delivery: preference
// gating, quiet-hours deferral, template rendering, and the ordered channel
// fallback chain.
package dispatch

import (
	"context"
	"errors"
	"time"

	commonerrors "family-notify/internal/common/errors"
	"family-notify/internal/common/logger"
	"family-notify/internal/common/metrics"
	"family-notify/internal/models"
	"family-notify/internal/notification/channels"
	"family-notify/internal/notification/quiethours"
	"family-notify/internal/notification/template"

	"github.com/google/uuid"
)

// RecipientLookup resolves a recipient record by id. A missing recipient is
// signalled with models.ErrRecipientNotFound.
type RecipientLookup interface {
	GetRecipient(ctx context.Context, id string) (*models.Recipient, error)
}

// PreferenceResolver returns the effective preferences for a recipient.
// It never fails; missing or unreadable records degrade to defaults.
type PreferenceResolver interface {
	Resolve(ctx context.Context, recipientID string) *models.NotificationPreferences
}

// Request describes one notification to deliver.
type Request struct {
	RecipientID string
	Type        models.NotificationType
	Data        map[string]string
}

// Dispatcher drives a request through gating, rendering, and the channel
// fallback chain. One dispatch makes at most one successful delivery.
type Dispatcher struct {
	recipients RecipientLookup
	prefs      PreferenceResolver
	senders    map[models.DeliveryChannel]channels.Sender
	priority   []models.DeliveryChannel
	now        func() time.Time
	log        logger.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the wall clock, used by quiet-hours tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithChannelPriority overrides the attempt order.
func WithChannelPriority(priority []models.DeliveryChannel) Option {
	return func(d *Dispatcher) {
		if len(priority) > 0 {
			d.priority = priority
		}
	}
}

func NewDispatcher(recipients RecipientLookup, prefs PreferenceResolver, senders []channels.Sender, log logger.Logger, opts ...Option) *Dispatcher {
	byChannel := make(map[models.DeliveryChannel]channels.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	d := &Dispatcher{
		recipients: recipients,
		prefs:      prefs,
		senders:    byChannel,
		priority:   models.DefaultChannelPriority(),
		now:        time.Now,
		log:        log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers one notification. Business outcomes (recipient missing,
// type opted out, quiet hours, nothing enabled, every channel failing) are
// reported in the result with a nil error; only infrastructure faults such as
// a recipient lookup failure or an unknown type return an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*models.DispatchResult, error) {
	start := d.now()
	result := &models.DispatchResult{
		DispatchID:  uuid.New().String(),
		RecipientID: req.RecipientID,
		Type:        req.Type,
		StartedAt:   start,
	}

	if !req.Type.Valid() {
		return nil, commonerrors.NewTemplateNotFoundError(string(req.Type))
	}

	recipient, err := d.recipients.GetRecipient(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, models.ErrRecipientNotFound) {
			return d.skip(ctx, result, models.SkipRecipientNotFound), nil
		}
		metrics.DispatchesTotal.WithLabelValues(string(req.Type), "error").Inc()
		return nil, commonerrors.NewRecipientLookupFailedError(err)
	}

	prefs := d.prefs.Resolve(ctx, req.RecipientID)

	if !prefs.TypeEnabled(req.Type) {
		return d.skip(ctx, result, models.SkipTypeDisabled), nil
	}

	// Crisis alerts go out no matter the hour.
	if req.Type != models.TypeCrisisAlert && quiethours.IsQuietNow(prefs.QuietHours, quiethours.Clock(d.now())) {
		return d.skip(ctx, result, models.SkipQuietHours), nil
	}

	// Copy before injecting the recipient name; the caller's map stays untouched.
	data := make(map[string]string, len(req.Data)+1)
	for k, v := range req.Data {
		data[k] = v
	}
	if _, ok := data["memberName"]; !ok && recipient.Name != "" {
		data["memberName"] = recipient.Name
	}

	msg, err := template.Render(req.Type, prefs.Language, data)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(req.Type), "error").Inc()
		return nil, commonerrors.NewTemplateNotFoundError(string(req.Type))
	}

	attempted := false
	for _, channel := range d.priority {
		if !prefs.ChannelEnabled(channel) {
			continue
		}
		sender, ok := d.senders[channel]
		if !ok {
			continue
		}
		attempted = true

		attempt := sender.Send(ctx, recipient, msg)
		result.Attempts = append(result.Attempts, *attempt)

		if attempt.Success {
			result.Success = true
			result.DeliveredVia = channel
			return d.finish(ctx, result, "delivered"), nil
		}

		errorCode := ""
		if attempt.Error != nil {
			errorCode = attempt.Error.Code
		}
		d.log.Info("channel attempt failed, falling through", map[string]interface{}{
			"dispatchId":  result.DispatchID,
			"recipientId": req.RecipientID,
			"channel":     string(channel),
			"errorCode":   errorCode,
		})
	}

	if !attempted {
		return d.skip(ctx, result, models.SkipNoChannels), nil
	}

	// Every enabled channel was tried and failed.
	return d.finish(ctx, result, "failed"), nil
}

func (d *Dispatcher) skip(ctx context.Context, result *models.DispatchResult, reason models.SkipReason) *models.DispatchResult {
	result.Reason = reason
	return d.finish(ctx, result, "skipped")
}

func (d *Dispatcher) finish(_ context.Context, result *models.DispatchResult, outcome string) *models.DispatchResult {
	result.FinishedAt = d.now()

	metrics.DispatchesTotal.WithLabelValues(string(result.Type), outcome).Inc()
	metrics.DispatchDuration.WithLabelValues(string(result.Type)).
		Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	d.log.Info("dispatch finished", map[string]interface{}{
		"dispatchId":  result.DispatchID,
		"recipientId": result.RecipientID,
		"type":        string(result.Type),
		"outcome":     outcome,
		"reason":      string(result.Reason),
		"attempts":    len(result.Attempts),
	})

	return result
}
