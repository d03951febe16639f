package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"family-notify/internal/common/config"
	commonhttp "family-notify/internal/common/http"
	"family-notify/internal/common/logger"
	"family-notify/internal/models"
	"family-notify/internal/notification/template"
)

// WhatsAppSender delivers templated messages through the WhatsApp Business
// Cloud API. Messages reference a pre-registered template by the render's
// ChannelTemplateID. Failures are reported, never retried here; fallback is
// the dispatcher's job.
type WhatsAppSender struct {
	cfg    config.WhatsAppConfig
	client *commonhttp.Client
	log    logger.Logger
}

func NewWhatsAppSender(cfg config.WhatsAppConfig, client *commonhttp.Client, log logger.Logger) *WhatsAppSender {
	return &WhatsAppSender{
		cfg:    cfg,
		client: client,
		log:    log.WithFields(map[string]interface{}{"channel": "whatsapp"}),
	}
}

func (s *WhatsAppSender) Channel() models.DeliveryChannel {
	return models.ChannelWhatsApp
}

type whatsAppRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Template         whatsAppTemplate `json:"template"`
}

type whatsAppTemplate struct {
	Name       string              `json:"name"`
	Language   whatsAppLanguage    `json:"language"`
	Components []whatsAppComponent `json:"components,omitempty"`
}

type whatsAppLanguage struct {
	Code string `json:"code"`
}

type whatsAppComponent struct {
	Type       string              `json:"type"`
	Parameters []whatsAppParameter `json:"parameters"`
}

type whatsAppParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *WhatsAppSender) Send(ctx context.Context, recipient *models.Recipient, msg *template.RenderedMessage) *models.DeliveryAttempt {
	if !s.cfg.Enabled {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeChannelDisabled, "WhatsApp channel is disabled")
	}
	if recipient.Phone == "" {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeMissingPhone, "recipient has no phone number")
	}

	payload := whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               recipient.Phone,
		Type:             "template",
		Template: whatsAppTemplate{
			Name:     msg.ChannelTemplateID,
			Language: whatsAppLanguage{Code: msg.Language},
			Components: []whatsAppComponent{
				{
					Type: "body",
					Parameters: []whatsAppParameter{
						{Type: "text", Text: msg.Body},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError, fmt.Sprintf("marshal request: %v", err))
	}

	url := fmt.Sprintf("%s/%s/messages", s.cfg.BaseURL, s.cfg.PhoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)

	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		s.log.Warn("whatsapp request failed", map[string]interface{}{
			"recipientId": recipient.ID,
			"error":       err.Error(),
		})
		return failedAttempt(models.ChannelWhatsApp, ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError, fmt.Sprintf("read response: %v", err))
	}

	var parsed whatsAppResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError,
			fmt.Sprintf("unexpected response (status %d)", resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		message := fmt.Sprintf("send rejected (status %d)", resp.StatusCode)
		if parsed.Error != nil {
			message = fmt.Sprintf("send rejected (code %d): %s", parsed.Error.Code, parsed.Error.Message)
		}
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError, message)
	}

	if len(parsed.Messages) == 0 {
		return failedAttempt(models.ChannelWhatsApp, ErrCodeProviderError, "no message id in response")
	}

	return successAttempt(models.ChannelWhatsApp, parsed.Messages[0].ID)
}
