// Package template renders notification types into bilingual message copy.
// Rendering is pure string interpolation; no network, no state.
package template

import (
	"errors"
	"fmt"
	"strings"

	"family-notify/internal/models"
)

// ErrUnknownTemplate is returned when no copy exists for a notification type.
var ErrUnknownTemplate = errors.New("unknown notification template")

// RenderedMessage is the channel-agnostic output of a render.
type RenderedMessage struct {
	Title             string            `json:"title"`
	Body              string            `json:"body"`
	ChannelTemplateID string            `json:"channelTemplateId"`
	Language          string            `json:"language"`
	TemplateData      map[string]string `json:"templateData"`
}

type messageCopy struct {
	title string
	body  string
}

// copyByType holds the fixed bilingual copy for every supported type.
var copyByType = map[models.NotificationType]map[string]messageCopy{
	models.TypeEventInvitation: {
		models.LanguageArabic: {
			title: "دعوة لمناسبة عائلية",
			body:  "عزيزي {{memberName}}، يسرنا دعوتكم لحضور {{eventName}} بتاريخ {{eventDate}} في {{eventLocation}}.",
		},
		models.LanguageEnglish: {
			title: "Family Event Invitation",
			body:  "Dear {{memberName}}, you are invited to {{eventName}} on {{eventDate}} at {{eventLocation}}.",
		},
	},
	models.TypePaymentReceipt: {
		models.LanguageArabic: {
			title: "إيصال استلام دفعة",
			body:  "عزيزي {{memberName}}، تم استلام مبلغ {{amount}} بنجاح. رقم الإيصال: {{receiptNumber}}.",
		},
		models.LanguageEnglish: {
			title: "Payment Receipt",
			body:  "Dear {{memberName}}, your payment of {{amount}} was received. Receipt number: {{receiptNumber}}.",
		},
	},
	models.TypePaymentReminder: {
		models.LanguageArabic: {
			title: "تذكير بالاشتراك المستحق",
			body:  "عزيزي {{memberName}}، نذكركم بسداد اشتراك بقيمة {{amount}} قبل {{dueDate}}.",
		},
		models.LanguageEnglish: {
			title: "Subscription Payment Reminder",
			body:  "Dear {{memberName}}, your subscription payment of {{amount}} is due by {{dueDate}}.",
		},
	},
	models.TypeCrisisAlert: {
		models.LanguageArabic: {
			title: "تنبيه عاجل",
			body:  "تنبيه عاجل من إدارة الأسرة: {{message}}",
		},
		models.LanguageEnglish: {
			title: "Urgent Alert",
			body:  "Urgent alert from the family association: {{message}}",
		},
	},
	models.TypeGeneralAnnouncement: {
		models.LanguageArabic: {
			title: "إعلان من الأسرة",
			body:  "{{message}}",
		},
		models.LanguageEnglish: {
			title: "Family Announcement",
			body:  "{{message}}",
		},
	},
	models.TypeRSVPConfirmation: {
		models.LanguageArabic: {
			title: "تأكيد تسجيل الحضور",
			body:  "عزيزي {{memberName}}، تم تأكيد تسجيلكم لحضور {{eventName}}.",
		},
		models.LanguageEnglish: {
			title: "RSVP Confirmation",
			body:  "Dear {{memberName}}, your attendance at {{eventName}} is confirmed.",
		},
	},
}

// Render produces title and body copy for a notification type in the given
// language. The language falls back to Arabic when unsupported; an unknown
// type fails with ErrUnknownTemplate. Same inputs always produce the same
// output.
func Render(t models.NotificationType, language string, data map[string]string) (*RenderedMessage, error) {
	byLanguage, ok := copyByType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, t)
	}

	if language != models.LanguageEnglish {
		language = models.LanguageArabic
	}
	selected := byLanguage[language]

	if data == nil {
		data = map[string]string{}
	}

	return &RenderedMessage{
		Title: interpolate(selected.title, data),
		Body:  interpolate(selected.body, data),
		// Stable identifier for providers with pre-registered templates.
		ChannelTemplateID: fmt.Sprintf("%s_%s", t, language),
		Language:          language,
		TemplateData:      data,
	}, nil
}

// interpolate replaces {{key}} placeholders and strips any that have no value.
func interpolate(tmpl string, data map[string]string) string {
	result := tmpl

	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	// Remove remaining placeholders so missing values render as empty.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return strings.TrimSpace(result)
}
