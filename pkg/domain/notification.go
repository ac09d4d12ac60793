package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies why an alert was sent, e.g. "expired" or
// "expiring_in_7_days". Suppression is keyed on it.
type NotificationType string

// NotificationExpired is sent for domains whose expiration date has passed.
const NotificationExpired NotificationType = "expired"

const (
	expiringPrefix = "expiring_in_"
	expiringSuffix = "_days"
)

// ExpiringIn returns the notification type for a domain expiring in days days.
func ExpiringIn(days int) NotificationType {
	return NotificationType(fmt.Sprintf("%s%d%s", expiringPrefix, days, expiringSuffix))
}

// Days returns the threshold encoded in an expiring_in_N_days type.
func (t NotificationType) Days() (int, bool) {
	s := string(t)
	if !strings.HasPrefix(s, expiringPrefix) || !strings.HasSuffix(s, expiringSuffix) {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(s, expiringPrefix), expiringSuffix))
	if err != nil {
		return 0, false
	}

	return n, true
}

// NotificationLog is one delivery attempt on one channel. Rows are append-only.
type NotificationLog struct {
	ID       uuid.UUID        `json:"id"`
	DomainID DomainID         `json:"domainId"`
	Type     NotificationType `json:"type"`
	// ChannelID is nil when the attempt failed before a channel could be resolved.
	ChannelID *ChannelID  `json:"channelId,omitempty"`
	Channel   ChannelType `json:"channel"`
	Message   string      `json:"message"`
	SentAt    time.Time   `json:"sentAt"`
	Success   bool        `json:"success"`
	// ErrorDetail is the masked, truncated failure description.
	ErrorDetail string `json:"errorDetail,omitempty"`
}
