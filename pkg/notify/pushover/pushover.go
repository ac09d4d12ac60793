// Package pushover delivers notifications through the Pushover message API.
package pushover

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/notify"
)

// Endpoint is the Pushover message API.
const Endpoint = "https://api.pushover.net/1/messages.json"

// Channel configuration keys.
const (
	SettingUserKey  = "user_key"
	SettingAPIToken = "api_token"
	SettingDevice   = "device"
	SettingSound    = "sound"
)

// Pushover priorities.
const (
	PriorityLow       = -1
	PriorityNormal    = 0
	PriorityHigh      = 1
	PriorityEmergency = 2
)

// PriorityFor maps days left to a priority: one day or less is an emergency,
// a week or less high, two weeks or less normal and anything later low.
func PriorityFor(daysLeft int) int {
	switch {
	case daysLeft <= 1:
		return PriorityEmergency
	case daysLeft <= 7:
		return PriorityHigh
	case daysLeft <= 14:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Options tune emergency notifications, which Pushover repeats every Retry
// until acknowledged or Expire elapses.
type Options struct {
	Endpoint string
	Retry    time.Duration
	Expire   time.Duration
}

// Sender delivers notifications to Pushover.
type Sender struct {
	delivery notify.HTTPDelivery
	options  Options
}

// New creates a Sender. Zero options use the public endpoint, a 60s retry
// and a one hour expiry.
func New(delivery notify.HTTPDelivery, options Options) *Sender {
	if options.Endpoint == "" {
		options.Endpoint = Endpoint
	}
	if options.Retry < 30*time.Second {
		options.Retry = 60 * time.Second
	}
	if options.Expire <= 0 {
		options.Expire = time.Hour
	}

	return &Sender{delivery: delivery, options: options}
}

var _ notify.Sender = (*Sender)(nil)

// Send implements notify.Sender.
func (s *Sender) Send(ctx context.Context, ch domain.Channel, msg notify.Message) error {
	user, token := ch.Setting(SettingUserKey), ch.Setting(SettingAPIToken)
	if user == "" || token == "" {
		return &notify.DeliveryError{Channel: domain.ChannelPushover, Detail: "user key or api token missing"}
	}

	form := Form(msg, PriorityFor(msg.DaysLeft), s.options)
	form.Set("token", token)
	form.Set("user", user)
	if device := ch.Setting(SettingDevice); device != "" {
		form.Set("device", device)
	}
	if sound := ch.Setting(SettingSound); sound != "" {
		form.Set("sound", sound)
	}
	encoded := form.Encode()

	return s.delivery.Do(ctx, domain.ChannelPushover, s.options.Endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.options.Endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return req, nil
	})
}

// Form builds the message fields without credentials.
func Form(msg notify.Message, priority int, options Options) url.Values {
	form := url.Values{}
	form.Set("title", msg.Severity.Visual().Icon+" "+msg.Title)
	form.Set("message", notify.Truncate(msg.Body, 1024))
	form.Set("priority", strconv.Itoa(priority))
	form.Set("timestamp", strconv.FormatInt(msg.SentAt.Unix(), 10))
	if priority == PriorityEmergency {
		form.Set("retry", strconv.Itoa(int(options.Retry.Seconds())))
		form.Set("expire", strconv.Itoa(int(options.Expire.Seconds())))
		form.Set("tags", "domainwatch,"+msg.Domain)
	}

	return form
}
