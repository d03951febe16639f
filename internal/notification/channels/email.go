package channels

import (
	"context"

	"family-notify/internal/common/config"
	"family-notify/internal/common/logger"
	"family-notify/internal/models"
	"family-notify/internal/notification/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the subset of the SES client the sender uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender wraps AWS SES. Email is a defined channel but not part of the
// default attempt order; it participates only when explicitly configured
// into the priority list.
type EmailSender struct {
	cfg    config.EmailConfig
	client SESService
	log    logger.Logger
}

func NewEmailSender(cfg config.EmailConfig, client SESService, log logger.Logger) *EmailSender {
	return &EmailSender{
		cfg:    cfg,
		client: client,
		log:    log.WithFields(map[string]interface{}{"channel": "email"}),
	}
}

func (s *EmailSender) Channel() models.DeliveryChannel {
	return models.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt {
	if !s.cfg.Enabled {
		return failedAttempt(models.ChannelEmail, ErrCodeChannelDisabled, "email channel is disabled")
	}
	if recipient.Email == "" {
		return failedAttempt(models.ChannelEmail, ErrCodeMissingEmail, "recipient has no email address")
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{recipient.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(msg.Title)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(s.cfg.FromEmail),
	})
	if err != nil {
		s.log.Warn("email send failed", map[string]interface{}{
			"recipientId": recipient.ID,
			"error":       err.Error(),
		})
		return failedAttempt(models.ChannelEmail, ErrCodeProviderError, err.Error())
	}

	return successAttempt(models.ChannelEmail, aws.ToString(out.MessageId))
}
