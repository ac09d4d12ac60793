// Package notify turns a notification decision into deliveries on the
// configured channels. Every channel is attempted independently; one failing
// channel never stops the others.
package notify

import (
	"context"
	"fmt"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/serrors"
)

// Message is the channel independent content of one notification.
type Message struct {
	Type     domain.NotificationType
	Severity Severity
	Domain   string
	// DaysLeft is zero or negative once expired.
	DaysLeft       int
	ExpirationDate *time.Time
	Status         domain.Status
	Registrar      string
	Title          string
	Body           string
	SentAt         time.Time
}

// Data is the structured form of the message used by JSON payloads.
func (m Message) Data() map[string]any {
	data := map[string]any{
		"domain":    m.Domain,
		"days_left": m.DaysLeft,
		"status":    string(m.Status),
		"severity":  m.Severity.String(),
	}
	if m.ExpirationDate != nil {
		data["expiration_date"] = m.ExpirationDate.UTC().Format(time.RFC3339)
	}
	if m.Registrar != "" {
		data["registrar"] = m.Registrar
	}

	return data
}

// Sender delivers a message on one channel type.
//
//go:generate mockgen -package mocknotify -source=notify.go -destination=mock/mocknotify.go *
type Sender interface {
	// Send delivers msg using the channel configuration. Failures are
	// returned as *DeliveryError.
	Send(ctx context.Context, channel domain.Channel, msg Message) error
}

// DeliveryError describes a failed delivery. Detail is safe to log and store:
// credentials are masked and response bodies truncated.
type DeliveryError struct {
	Channel    domain.ChannelType
	StatusCode int
	Detail     string
	Err        error
}

func (e *DeliveryError) Error() string {
	msg := fmt.Sprintf("%s delivery failed", e.Channel)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes both serrors.ErrDeliveryFailed and the cause.
func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{serrors.ErrDeliveryFailed}
	}

	return []error{serrors.ErrDeliveryFailed, e.Err}
}

// Temporary reports whether retrying the delivery may succeed.
func (e *DeliveryError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// Result is the outcome of one channel in a dispatch.
type Result struct {
	ChannelID   domain.ChannelID
	Channel     domain.ChannelType
	Success     bool
	ErrorDetail string
}
