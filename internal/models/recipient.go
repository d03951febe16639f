package models

import "errors"

// ErrRecipientNotFound is returned by recipient lookups when the identifier
// resolves to no member. It is an expected outcome, distinct from storage
// failures.
var ErrRecipientNotFound = errors.New("recipient not found")

// Recipient is a member who can receive notifications.
type Recipient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

// DevicePlatform identifies the platform a push token belongs to.
type DevicePlatform string

const (
	PlatformAndroid DevicePlatform = "android"
	PlatformIOS     DevicePlatform = "ios"
	PlatformWeb     DevicePlatform = "web"
)

// DeviceToken is a push registration owned by the external token store.
// The core only reads active tokens and requests deactivation of invalid ones.
type DeviceToken struct {
	Token    string         `json:"token"`
	Platform DevicePlatform `json:"platform"`
	IsActive bool           `json:"isActive"`
}
