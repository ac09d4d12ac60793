package storage

import (
	"context"
	"time"

	"domainwatch/pkg/domain"
)

// CheckMark records a check that did not produce registry data.
type CheckMark struct {
	CheckedAt           time.Time
	ConsecutiveFailures int
	// Status replaces the stored status when set. The empty value keeps it.
	Status domain.Status
}

// DomainStorage reads monitored domains and writes check outcomes. Writes
// touch a single row and the last write wins.
type DomainStorage interface {
	// ActiveDomains returns every domain with IsActive set, ordered by name.
	ActiveDomains(ctx context.Context) ([]domain.Domain, error)
	// DomainByName returns the domain with the given name, or nil when none exists.
	DomainByName(ctx context.Context, name string) (*domain.Domain, error)
	// UpsertDomains inserts domains by name. Existing rows only get IsActive and
	// NotificationGroupID replaced so registry data survives re-seeding.
	UpsertDomains(ctx context.Context, domains ...domain.Domain) ([]domain.Domain, error)
	// UpdateDomainCheck stores the registry data, status, LastChecked and
	// ConsecutiveFailures of d, identified by its ID.
	UpdateDomainCheck(ctx context.Context, d domain.Domain) error
	// MarkDomainChecked updates LastChecked, ConsecutiveFailures and optionally
	// Status, leaving registry data untouched.
	MarkDomainChecked(ctx context.Context, id domain.DomainID, mark CheckMark) error
}

// ChannelStorage reads notification channel configuration.
type ChannelStorage interface {
	// ActiveChannels returns the active channels of a notification group.
	ActiveChannels(ctx context.Context, groupID domain.GroupID) ([]domain.Channel, error)
	// StoreChannels inserts channel configurations and returns them with
	// their IDs. Only seeding writes channels.
	StoreChannels(ctx context.Context, channels ...domain.Channel) ([]domain.Channel, error)
}
