package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DomainID uniquely identifies a monitored domain.
// It wraps uuid.UUID to provide type safety at the domain layer.
type DomainID uuid.UUID

// String returns the canonical UUID form.
func (id DomainID) String() string { return uuid.UUID(id).String() }

// GroupID identifies a notification group. Domains point at a group and the
// group owns the channels alerts fan out to.
type GroupID uuid.UUID

// String returns the canonical UUID form.
func (id GroupID) String() string { return uuid.UUID(id).String() }

// Status is the lifecycle state of a domain registration.
type Status string

const (
	// StatusUnknown is the state of a domain that was never checked.
	StatusUnknown Status = "unknown"
	// StatusActive indicates a registration that is not close to expiring.
	StatusActive Status = "active"
	// StatusExpiringSoon indicates the expiration date falls inside the warning window.
	StatusExpiringSoon Status = "expiring_soon"
	// StatusExpired indicates the expiration date has passed.
	StatusExpired Status = "expired"
	// StatusRedemption indicates the registry reports a redemption grace period.
	StatusRedemption Status = "redemption"
	// StatusPendingDelete indicates the registry scheduled the domain for deletion.
	StatusPendingDelete Status = "pending_delete"
	// StatusError indicates the last check failed and no good state could be kept.
	StatusError Status = "error"
)

// IsKnownGood reports whether s is a state worth preserving across a failed
// lookup.
func (s Status) IsKnownGood() bool {
	return s == StatusActive || s == StatusExpiringSoon
}

// Valid reports whether s is one of the declared states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusActive, StatusExpiringSoon, StatusExpired,
		StatusRedemption, StatusPendingDelete, StatusError:
		return true
	}

	return false
}

// Domain is a monitored domain name and the last known registry data for it.
type Domain struct {
	// ID is the unique identifier of the record.
	ID DomainID `json:"id"`
	// Name is the fully qualified domain name, unique across records.
	Name string `json:"name"`

	Registrar    string `json:"registrar,omitempty"`
	RegistrarURL string `json:"registrarUrl,omitempty"`
	// ExpirationDate is nil when no registry ever reported one.
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	UpdatedDate    *time.Time `json:"updatedDate,omitempty"`
	AbuseEmail     string     `json:"abuseEmail,omitempty"`
	// Nameservers keeps registry order.
	Nameservers []string `json:"nameservers,omitempty"`

	Status Status `json:"status"`
	// LastChecked is the time of the last lookup attempt, successful or not.
	LastChecked *time.Time `json:"lastChecked,omitempty"`
	// RawRegistryData is the unparsed WHOIS text or RDAP JSON of the last successful lookup.
	RawRegistryData string `json:"-"`

	// NotificationGroupID is nil for domains nobody is alerted about.
	NotificationGroupID *GroupID `json:"notificationGroupId,omitempty"`
	IsActive            bool     `json:"isActive"`
	// ConsecutiveFailures counts failed checks since the last successful lookup.
	ConsecutiveFailures int `json:"consecutiveFailures"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TLD returns the last label of the domain name, lower-cased.
func (d Domain) TLD() string {
	return TLDOf(d.Name)
}

// TLDOf returns the last label of name, lower-cased and without a trailing dot.
func TLDOf(name string) string {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}

	return name
}
