// Package webhook delivers notifications as HTTP POST requests in one of the
// domain.ChannelFormat payload shapes.
package webhook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/notify"

	"github.com/golang-jwt/jwt/v5"
)

// Channel configuration keys.
const (
	SettingURL           = "url"
	SettingSigningSecret = "signing_secret"
)

// Sender posts notifications to webhooks.
type Sender struct {
	delivery  notify.HTTPDelivery
	userAgent string
	now       func() time.Time
}

// New creates a Sender that posts through delivery.
func New(delivery notify.HTTPDelivery, userAgent string) *Sender {
	return &Sender{delivery: delivery, userAgent: userAgent, now: time.Now}
}

var _ notify.Sender = (*Sender)(nil)

// Send implements notify.Sender.
func (s *Sender) Send(ctx context.Context, ch domain.Channel, msg notify.Message) error {
	target := ch.Setting(SettingURL)
	if target == "" {
		return &notify.DeliveryError{Channel: domain.ChannelWebhook, Detail: "no url configured"}
	}

	body, contentType, err := Payload(ch.Format, msg)
	if err != nil {
		return &notify.DeliveryError{Channel: domain.ChannelWebhook, Detail: "could not build payload", Err: err}
	}

	var token string
	if secret := ch.Setting(SettingSigningSecret); secret != "" {
		token, err = Sign(secret, body, s.now())
		if err != nil {
			return &notify.DeliveryError{Channel: domain.ChannelWebhook, Detail: "could not sign payload", Err: err}
		}
	}

	return s.delivery.Do(ctx, domain.ChannelWebhook, target, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		if s.userAgent != "" {
			req.Header.Set("User-Agent", s.userAgent)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		return req, nil
	})
}

// Payload renders msg in format f and returns the body and its content type.
// The empty format is FormatJSON.
func Payload(f domain.ChannelFormat, msg notify.Message) ([]byte, string, error) {
	switch f {
	case "", domain.FormatJSON:
		b, err := json.Marshal(jsonPayload{
			Event:   string(msg.Type),
			Message: msg.Title + "\n" + msg.Body,
			Data:    msg.Data(),
			SentAt:  msg.SentAt.UTC().Format(time.RFC3339),
		})

		return b, "application/json", err
	case domain.FormatSlack:
		b, err := json.Marshal(slackPayload(msg))

		return b, "application/json", err
	case domain.FormatText:
		return []byte(msg.Text()), "text/plain; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("unsupported webhook format %q", f)
	}
}

type jsonPayload struct {
	Event   string         `json:"event"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	SentAt  string         `json:"sent_at"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color    string       `json:"color"`
	Title    string       `json:"title"`
	Text     string       `json:"text"`
	Fields   []slackField `json:"fields"`
	Footer   string       `json:"footer"`
	Ts       int64        `json:"ts"`
	Fallback string       `json:"fallback"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func slackPayload(msg notify.Message) slackMessage {
	v := msg.Severity.Visual()
	fields := []slackField{
		{Title: "Domain", Value: msg.Domain, Short: true},
		{Title: "Days left", Value: fmt.Sprint(msg.DaysLeft), Short: true},
		{Title: "Status", Value: string(msg.Status), Short: true},
	}
	if msg.ExpirationDate != nil {
		fields = append(fields, slackField{
			Title: "Expires", Value: msg.ExpirationDate.UTC().Format("2006-01-02"), Short: true,
		})
	}
	if msg.Registrar != "" {
		fields = append(fields, slackField{Title: "Registrar", Value: msg.Registrar, Short: true})
	}

	return slackMessage{
		Text: v.Icon + " " + msg.Title,
		Attachments: []slackAttachment{{
			Color:    v.Color,
			Title:    v.Icon + " " + msg.Title,
			Text:     msg.Body,
			Fields:   fields,
			Footer:   "domainwatch",
			Ts:       msg.SentAt.Unix(),
			Fallback: msg.Title,
		}},
	}
}

// Claims are carried by the bearer token of signed webhooks. BodySHA256
// binds the token to the exact payload.
type Claims struct {
	jwt.RegisteredClaims
	BodySHA256 string `json:"body_sha256"`
}

// Sign returns an HS256 token over body valid for five minutes.
func Sign(secret string, body []byte, now time.Time) (string, error) {
	sum := sha256.Sum256(body)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "domainwatch",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		BodySHA256: hex.EncodeToString(sum[:]),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return signed, nil
}
