// Package email delivers notifications as transactional email through the
// Brevo API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/notify"
)

// Endpoint is the Brevo transactional email API.
const Endpoint = "https://api.brevo.com/v3/smtp/email"

// Channel configuration keys. "to" may hold several comma separated
// addresses.
const (
	SettingAPIKey   = "api_key"
	SettingTo       = "to"
	SettingFrom     = "from"
	SettingFromName = "from_name"
)

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Request is the Brevo send request body.
type Request struct {
	Sender  contact   `json:"sender"`
	To      []contact `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"htmlContent"`
	Text    string    `json:"textContent"`
}

// Sender sends notification emails.
type Sender struct {
	delivery notify.HTTPDelivery
	endpoint string
}

// New creates a Sender. An empty endpoint uses Brevo's public API.
func New(delivery notify.HTTPDelivery, endpoint string) *Sender {
	if endpoint == "" {
		endpoint = Endpoint
	}

	return &Sender{delivery: delivery, endpoint: endpoint}
}

var _ notify.Sender = (*Sender)(nil)

// Send implements notify.Sender.
func (s *Sender) Send(ctx context.Context, ch domain.Channel, msg notify.Message) error {
	apiKey := ch.Setting(SettingAPIKey)
	if apiKey == "" || ch.Setting(SettingTo) == "" || ch.Setting(SettingFrom) == "" {
		return &notify.DeliveryError{Channel: domain.ChannelEmail, Detail: "api key, sender or recipient missing"}
	}

	body, err := json.Marshal(Build(ch, msg))
	if err != nil {
		return &notify.DeliveryError{Channel: domain.ChannelEmail, Detail: "could not encode request", Err: err}
	}

	return s.delivery.Do(ctx, domain.ChannelEmail, s.endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("api-key", apiKey)

		return req, nil
	})
}

// Build creates the request for msg.
func Build(ch domain.Channel, msg notify.Message) Request {
	req := Request{
		Sender:  contact{Email: ch.Setting(SettingFrom), Name: ch.Setting(SettingFromName)},
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(msg.Severity.String()), msg.Title),
		Text:    msg.Text(),
		HTML:    renderHTML(msg),
	}
	for _, addr := range strings.Split(ch.Setting(SettingTo), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			req.To = append(req.To, contact{Email: addr})
		}
	}

	return req
}

func renderHTML(msg notify.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<h2 style="color:%s">%s</h2>`, msg.Severity.Visual().Color, html.EscapeString(msg.Title))
	for _, line := range strings.Split(msg.Body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(line))
		}
	}

	return b.String()
}
