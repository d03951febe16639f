package channels

import (
	"context"

	"family-notify/internal/common/config"
	"family-notify/internal/common/logger"
	"family-notify/internal/models"
	"family-notify/internal/notification/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client the sender uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender wraps AWS SNS. The channel ships disabled: until a gateway
// contract is signed it always reports channel-disabled, which callers treat
// as a normal failure. The publish path below stays wired so flipping the
// config flag is all it takes to go live.
type SMSSender struct {
	cfg    config.SMSConfig
	client SNSService
	log    logger.Logger
}

func NewSMSSender(cfg config.SMSConfig, client SNSService, log logger.Logger) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: client,
		log:    log.WithFields(map[string]interface{}{"channel": "sms"}),
	}
}

func (s *SMSSender) Channel() models.DeliveryChannel {
	return models.ChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt {
	if !s.cfg.Enabled {
		return failedAttempt(models.ChannelSMS, ErrCodeChannelDisabled, "SMS channel is disabled")
	}
	if recipient.Phone == "" {
		return failedAttempt(models.ChannelSMS, ErrCodeMissingPhone, "recipient has no phone number")
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient.Phone),
		Message:     aws.String(msg.Body),
	}
	if s.cfg.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.cfg.SenderID),
			},
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.Warn("sms publish failed", map[string]interface{}{
			"recipientId": recipient.ID,
			"error":       err.Error(),
		})
		return failedAttempt(models.ChannelSMS, ErrCodeProviderError, err.Error())
	}

	return successAttempt(models.ChannelSMS, aws.ToString(out.MessageId))
}
