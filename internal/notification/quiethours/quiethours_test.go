// internal/notification/quiethours/quiethours_test.go
package quiethours

import (
	"testing"
	"time"

	"family-notify/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestIsQuietNow(t *testing.T) {
	tests := []struct {
		name   string
		window models.QuietHours
		now    string
		want   bool
	}{
		{
			name:   "disabled window never matches",
			window: models.QuietHours{Enabled: false, Start: "22:00", End: "07:00"},
			now:    "23:00",
			want:   false,
		},
		{
			name:   "empty edges never match",
			window: models.QuietHours{Enabled: true},
			now:    "23:00",
			want:   false,
		},
		{
			name:   "same day window inside",
			window: models.QuietHours{Enabled: true, Start: "13:00", End: "15:00"},
			now:    "14:00",
			want:   true,
		},
		{
			name:   "same day window before start",
			window: models.QuietHours{Enabled: true, Start: "13:00", End: "15:00"},
			now:    "12:59",
			want:   false,
		},
		{
			name:   "same day window start edge is inclusive",
			window: models.QuietHours{Enabled: true, Start: "13:00", End: "15:00"},
			now:    "13:00",
			want:   true,
		},
		{
			name:   "same day window end edge is inclusive",
			window: models.QuietHours{Enabled: true, Start: "13:00", End: "15:00"},
			now:    "15:00",
			want:   true,
		},
		{
			name:   "same day window after end",
			window: models.QuietHours{Enabled: true, Start: "13:00", End: "15:00"},
			now:    "15:01",
			want:   false,
		},
		{
			name:   "wrapping window late evening",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "23:30",
			want:   true,
		},
		{
			name:   "wrapping window early morning",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "06:59",
			want:   true,
		},
		{
			name:   "wrapping window end edge is inclusive",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "07:00",
			want:   true,
		},
		{
			name:   "wrapping window just after end",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "07:01",
			want:   false,
		},
		{
			name:   "wrapping window just before start",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "21:59",
			want:   false,
		},
		{
			name:   "wrapping window start edge is inclusive",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "22:00",
			want:   true,
		},
		{
			name:   "midnight inside wrapping window",
			window: models.QuietHours{Enabled: true, Start: "22:00", End: "07:00"},
			now:    "00:00",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuietNow(tt.window, tt.now))
		})
	}
}

func TestClock(t *testing.T) {
	at := time.Date(2026, 2, 3, 9, 5, 42, 0, time.UTC)
	assert.Equal(t, "09:05", Clock(at))
}
