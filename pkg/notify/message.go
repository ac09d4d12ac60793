package notify

import (
	"fmt"
	"strings"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/lifecycle"
)

// Severity ranks how urgent a notification is.
type Severity int

const (
	SeverityNotice Severity = iota
	SeverityWarning
	SeverityUrgent
	SeverityCritical
	SeverityExpired
)

// Visual is how a severity is rendered by rich formats.
type Visual struct {
	Label string
	Icon  string
	// Color is a hex RGB value for card borders.
	Color string
}

var visuals = map[Severity]Visual{ //nolint: gochecknoglobals
	SeverityNotice:   {Label: "notice", Icon: "ℹ️", Color: "#2196f3"},
	SeverityWarning:  {Label: "warning", Icon: "⚠️", Color: "#ffc107"},
	SeverityUrgent:   {Label: "urgent", Icon: "🟠", Color: "#ff9800"},
	SeverityCritical: {Label: "critical", Icon: "🔴", Color: "#f44336"},
	SeverityExpired:  {Label: "expired", Icon: "❌", Color: "#8b0000"},
}

// Visual returns the rendering of s.
func (s Severity) Visual() Visual {
	if v, ok := visuals[s]; ok {
		return v
	}

	return visuals[SeverityNotice]
}

func (s Severity) String() string { return s.Visual().Label }

// SeverityFor ranks a notification by the days left until expiration.
func SeverityFor(t domain.NotificationType, daysLeft int) Severity {
	switch {
	case t == domain.NotificationExpired || daysLeft <= 0:
		return SeverityExpired
	case daysLeft <= 1:
		return SeverityCritical
	case daysLeft <= 7:
		return SeverityUrgent
	case daysLeft <= 14:
		return SeverityWarning
	default:
		return SeverityNotice
	}
}

// BuildMessage renders the notification of type t about d.
func BuildMessage(d domain.Domain, t domain.NotificationType, now time.Time) Message {
	days := 0
	if d.ExpirationDate != nil {
		days = lifecycle.DaysLeft(*d.ExpirationDate, now)
	} else if n, ok := t.Days(); ok {
		days = n
	}

	msg := Message{
		Type:           t,
		Severity:       SeverityFor(t, days),
		Domain:         d.Name,
		DaysLeft:       days,
		ExpirationDate: d.ExpirationDate,
		Status:         d.Status,
		Registrar:      d.Registrar,
		SentAt:         now,
	}

	switch {
	case t == domain.NotificationExpired:
		msg.Title = fmt.Sprintf("%s has expired", d.Name)
	case days == 1:
		msg.Title = fmt.Sprintf("%s expires tomorrow", d.Name)
	default:
		msg.Title = fmt.Sprintf("%s expires in %d days", d.Name, days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\n", d.Name)
	if d.ExpirationDate != nil {
		fmt.Fprintf(&b, "Expiration date: %s\n", d.ExpirationDate.UTC().Format("2006-01-02"))
	}
	if t == domain.NotificationExpired {
		fmt.Fprintf(&b, "Expired %d day(s) ago\n", -days)
	} else {
		fmt.Fprintf(&b, "Days left: %d\n", days)
	}
	if d.Registrar != "" {
		fmt.Fprintf(&b, "Registrar: %s\n", d.Registrar)
	}
	fmt.Fprintf(&b, "Status: %s", d.Status)
	msg.Body = b.String()

	return msg
}

// Text renders the message as plain text with its icon.
func (m Message) Text() string {
	return m.Severity.Visual().Icon + " " + m.Title + "\n\n" + m.Body
}
