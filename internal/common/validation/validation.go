// Package validation holds small field validators shared by config loading
// and the stores.
package validation

import "regexp"

var (
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{8,}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidPhone validates basic phone number format.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidEmail validates email format.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidClock validates a zero-padded "HH:MM" clock string. Quiet-hours
// comparisons are lexicographic, so the zero padding matters.
func ValidClock(clock string) bool {
	return clockPattern.MatchString(clock)
}

// ValidLanguage reports whether lang is a supported template language.
func ValidLanguage(lang string) bool {
	return lang == "ar" || lang == "en"
}

// ValidChannel reports whether ch names a known delivery channel.
func ValidChannel(ch string) bool {
	switch ch {
	case "whatsapp", "sms", "push", "email":
		return true
	}
	return false
}
