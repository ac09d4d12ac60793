package domain

import "github.com/google/uuid"

// ChannelID uniquely identifies a notification channel configuration.
type ChannelID uuid.UUID

// String returns the canonical UUID form.
func (id ChannelID) String() string { return uuid.UUID(id).String() }

// ChannelType is the closed set of delivery mechanisms.
type ChannelType string

const (
	ChannelWebhook  ChannelType = "webhook"
	ChannelPushover ChannelType = "pushover"
	ChannelTelegram ChannelType = "telegram"
	ChannelEmail    ChannelType = "email"
)

// ChannelTypes lists every supported channel type.
var ChannelTypes = []ChannelType{ChannelWebhook, ChannelPushover, ChannelTelegram, ChannelEmail} //nolint: gochecknoglobals

// Valid reports whether t is a supported channel type.
func (t ChannelType) Valid() bool {
	for _, known := range ChannelTypes {
		if t == known {
			return true
		}
	}

	return false
}

// ChannelFormat selects the payload shape of channels that support more than one.
type ChannelFormat string

const (
	// FormatJSON is the default webhook payload: {event, message, data, sent_at}.
	FormatJSON ChannelFormat = "json"
	// FormatSlack is a Slack compatible attachment card.
	FormatSlack ChannelFormat = "slack"
	// FormatText posts the plain message body.
	FormatText ChannelFormat = "text"
)

// Valid reports whether f is a supported format. The empty format is valid
// and means the channel default.
func (f ChannelFormat) Valid() bool {
	switch f {
	case "", FormatJSON, FormatSlack, FormatText:
		return true
	}

	return false
}

// Channel is a configured delivery target belonging to a notification group.
// Its configuration arrives validated and is read-only to the checker.
type Channel struct {
	ID      ChannelID     `json:"id"`
	GroupID GroupID       `json:"groupId"`
	Name    string        `json:"name"`
	Type    ChannelType   `json:"type"`
	Format  ChannelFormat `json:"format,omitempty"`
	// Config holds channel specific settings such as a webhook URL or API token.
	Config   map[string]string `json:"-"`
	IsActive bool              `json:"isActive"`
}

// Setting returns the configuration value for key, or "" when missing.
func (c Channel) Setting(key string) string {
	if c.Config == nil {
		return ""
	}

	return c.Config[key]
}
