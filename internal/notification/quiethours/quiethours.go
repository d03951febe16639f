// Package quiethours decides whether a recipient's quiet-hours window covers
// the current time. The crisis-alert bypass is the dispatcher's concern, not
// this package's.
package quiethours

import (
	"time"

	"family-notify/internal/models"
)

// IsQuietNow reports whether now falls inside the quiet-hours window. Both
// window edges and now are zero-padded "HH:MM" strings, so the comparisons
// are lexicographic. A window with Start > End wraps midnight. Both edges are
// inclusive.
func IsQuietNow(w models.QuietHours, now string) bool {
	if !w.Enabled {
		return false
	}
	if w.Start == "" || w.End == "" {
		return false
	}

	if w.Start > w.End {
		// Wrapping window, e.g. 22:00 to 07:00.
		return now >= w.Start || now <= w.End
	}
	return now >= w.Start && now <= w.End
}

// Clock formats a time as the zero-padded "HH:MM" string IsQuietNow expects.
func Clock(t time.Time) string {
	return t.Format("15:04")
}
