package channels

import (
	"context"
	"fmt"

	"family-notify/internal/common/logger"
	"family-notify/internal/common/metrics"
	"family-notify/internal/models"
	"family-notify/internal/notification/template"

	"firebase.google.com/go/v4/messaging"
)

// maxFanout is the provider's per-call target limit for multicast and
// batched sends.
const maxFanout = 500

// MessagingClient is the subset of the FCM client the sender uses.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// TokenStore supplies active tokens and accepts deactivation of invalid ones.
type TokenStore interface {
	ListActiveTokens(ctx context.Context, recipientID string) ([]models.DeviceToken, error)
	DeactivateToken(ctx context.Context, token string) error
}

// PushSender fans a notification out to a recipient's registered devices via
// Firebase Cloud Messaging.
type PushSender struct {
	client MessagingClient
	tokens TokenStore
	log    logger.Logger
}

func NewPushSender(client MessagingClient, tokens TokenStore, log logger.Logger) *PushSender {
	return &PushSender{
		client: client,
		tokens: tokens,
		log:    log.WithFields(map[string]interface{}{"channel": "push"}),
	}
}

func (s *PushSender) Channel() models.DeliveryChannel {
	return models.ChannelPush
}

// Send delivers to every active device of the recipient. Partial success
// counts as channel success; tokens the provider reports as invalid are
// deactivated as a side effect that never fails the send.
func (s *PushSender) Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt {
	deviceTokens, err := s.tokens.ListActiveTokens(ctx, recipient.ID)
	if err != nil {
		s.log.Warn("token store read failed", map[string]interface{}{
			"recipientId": recipient.ID,
			"error":       err.Error(),
		})
		return failedAttempt(models.ChannelPush, ErrCodeTokenStore, err.Error())
	}

	if len(deviceTokens) == 0 {
		// Fails fast; the provider is never contacted.
		return failedAttempt(models.ChannelPush, ErrCodeNoActiveDevices, "No active devices registered")
	}

	metrics.PushFanoutSize.Observe(float64(len(deviceTokens)))

	if len(deviceTokens) == 1 {
		messageID, err := s.SendToDevice(ctx, deviceTokens[0].Token, msg)
		if err != nil {
			s.removeIfInvalid(ctx, deviceTokens[0].Token, err)
			return failedAttempt(models.ChannelPush, ErrCodeProviderError, err.Error())
		}
		return successAttempt(models.ChannelPush, messageID)
	}

	result, err := s.SendMulticast(ctx, activeTokenStrings(deviceTokens), msg)
	if err != nil {
		return failedAttempt(models.ChannelPush, ErrCodeProviderError, err.Error())
	}

	for _, token := range result.InvalidTokens() {
		s.deactivate(ctx, token)
	}

	if result.SuccessCount == 0 {
		return failedAttempt(models.ChannelPush, ErrCodeAllDevicesFail, "Failed to send to any device")
	}

	return successAttempt(models.ChannelPush, result.FirstMessageID())
}

// SendToDevice delivers one message to one device token.
func (s *PushSender) SendToDevice(ctx context.Context, token string, msg *template.RenderedMessage) (string, error) {
	return s.client.Send(ctx, buildMessage(token, msg))
}

// TokenOutcome is the per-token result of a multicast or batched send.
type TokenOutcome struct {
	Token             string
	Success           bool
	MessageID         string
	Error             *models.AttemptError
	ShouldRemoveToken bool
}

// FanoutResult aggregates per-token outcomes of one provider round trip.
type FanoutResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []TokenOutcome
}

// InvalidTokens lists the tokens recommended for removal.
func (r *FanoutResult) InvalidTokens() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.ShouldRemoveToken {
			out = append(out, o.Token)
		}
	}
	return out
}

// FirstMessageID returns the message ID of the first successful outcome.
func (r *FanoutResult) FirstMessageID() string {
	for _, o := range r.Outcomes {
		if o.Success {
			return o.MessageID
		}
	}
	return ""
}

// SendMulticast delivers the same message to up to 500 tokens in a single
// provider round trip.
func (s *PushSender) SendMulticast(ctx context.Context, tokens []string, msg *template.RenderedMessage) (*FanoutResult, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("multicast requires at least one token")
	}
	if len(tokens) > maxFanout {
		return nil, fmt.Errorf("multicast limited to %d tokens, got %d", maxFanout, len(tokens))
	}

	multicast := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    msg.TemplateData,
		Android: androidConfig(),
		APNS:    apnsConfig(msg),
	}

	resp, err := s.client.SendEachForMulticast(ctx, multicast)
	if err != nil {
		return nil, fmt.Errorf("multicast send: %w", err)
	}

	return collectOutcomes(tokens, resp), nil
}

// BatchItem pairs a device token with its own rendered message, for
// per-recipient batched sends.
type BatchItem struct {
	Token   string
	Message *template.RenderedMessage
}

// SendBatch delivers up to 500 distinct messages, one per token, in a single
// provider round trip. Same per-token semantics as SendMulticast.
func (s *PushSender) SendBatch(ctx context.Context, items []BatchItem) (*FanoutResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("batch requires at least one message")
	}
	if len(items) > maxFanout {
		return nil, fmt.Errorf("batch limited to %d messages, got %d", maxFanout, len(items))
	}

	fcmMessages := make([]*messaging.Message, 0, len(items))
	tokens := make([]string, 0, len(items))
	for _, item := range items {
		fcmMessages = append(fcmMessages, buildMessage(item.Token, item.Message))
		tokens = append(tokens, item.Token)
	}

	resp, err := s.client.SendEach(ctx, fcmMessages)
	if err != nil {
		return nil, fmt.Errorf("batch send: %w", err)
	}

	return collectOutcomes(tokens, resp), nil
}

// collectOutcomes maps the provider's batch response back onto the token
// list. Responses arrive in request order.
func collectOutcomes(tokens []string, resp *messaging.BatchResponse) *FanoutResult {
	result := &FanoutResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}

	for i, r := range resp.Responses {
		if i >= len(tokens) {
			break
		}
		outcome := TokenOutcome{
			Token:     tokens[i],
			Success:   r.Success,
			MessageID: r.MessageID,
		}
		if r.Error != nil {
			outcome.Error = &models.AttemptError{
				Code:    ErrCodeProviderError,
				Message: r.Error.Error(),
			}
			outcome.ShouldRemoveToken = ShouldRemoveToken(r.Error)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result
}

func (s *PushSender) removeIfInvalid(ctx context.Context, token string, err error) {
	if ShouldRemoveToken(err) {
		s.deactivate(ctx, token)
	}
}

// deactivate requests removal of an invalid token. Fire and forget: a store
// failure is logged and never fails the dispatch.
func (s *PushSender) deactivate(ctx context.Context, token string) {
	if err := s.tokens.DeactivateToken(ctx, token); err != nil {
		s.log.Warn("token deactivation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
