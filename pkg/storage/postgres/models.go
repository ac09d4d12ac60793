package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"domainwatch/pkg/domain"

	"github.com/google/uuid"
)

type PgDomain struct {
	ID   uuid.UUID `db:"id"   goqu:"skipinsert"`
	Name string    `db:"name"`

	Registrar      string          `db:"registrar"`
	RegistrarURL   string          `db:"registrar_url"`
	ExpirationDate sql.NullTime    `db:"expiration_date"`
	UpdatedDate    sql.NullTime    `db:"updated_date"`
	AbuseEmail     string          `db:"abuse_email"`
	Nameservers    json.RawMessage `db:"nameservers"`

	Status          string       `db:"status"`
	LastChecked     sql.NullTime `db:"last_checked"`
	RawRegistryData string       `db:"raw_registry_data"`

	NotificationGroupID uuid.NullUUID `db:"notification_group_id"`
	IsActive            bool          `db:"is_active"`
	ConsecutiveFailures int           `db:"consecutive_failures"`

	CreatedAt time.Time `db:"created_at" goqu:"skipinsert"`
	UpdatedAt time.Time `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgDomain) ToDomain() (*domain.Domain, error) {
	var nameservers []string
	if len(p.Nameservers) > 0 {
		if err := json.Unmarshal(p.Nameservers, &nameservers); err != nil {
			return nil, fmt.Errorf("could not unmarshal nameservers: %w", err)
		}
	}

	d := &domain.Domain{
		ID:                  domain.DomainID(p.ID),
		Name:                p.Name,
		Registrar:           p.Registrar,
		RegistrarURL:        p.RegistrarURL,
		ExpirationDate:      timePtr(p.ExpirationDate),
		UpdatedDate:         timePtr(p.UpdatedDate),
		AbuseEmail:          p.AbuseEmail,
		Nameservers:         nameservers,
		Status:              domain.Status(p.Status),
		LastChecked:         timePtr(p.LastChecked),
		RawRegistryData:     p.RawRegistryData,
		IsActive:            p.IsActive,
		ConsecutiveFailures: p.ConsecutiveFailures,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.NotificationGroupID.Valid {
		id := domain.GroupID(p.NotificationGroupID.UUID)
		d.NotificationGroupID = &id
	}

	return d, nil
}

func (p *PgDomain) FromDomain(d domain.Domain) error {
	nameservers := d.Nameservers
	if nameservers == nil {
		nameservers = []string{}
	}
	ns, err := json.Marshal(nameservers)
	if err != nil {
		return fmt.Errorf("could not marshal nameservers: %w", err)
	}

	status := d.Status
	if status == "" {
		status = domain.StatusUnknown
	}

	*p = PgDomain{
		ID:                  uuid.UUID(d.ID),
		Name:                d.Name,
		Registrar:           d.Registrar,
		RegistrarURL:        d.RegistrarURL,
		ExpirationDate:      nullTime(d.ExpirationDate),
		UpdatedDate:         nullTime(d.UpdatedDate),
		AbuseEmail:          d.AbuseEmail,
		Nameservers:         ns,
		Status:              string(status),
		LastChecked:         nullTime(d.LastChecked),
		RawRegistryData:     d.RawRegistryData,
		IsActive:            d.IsActive,
		ConsecutiveFailures: d.ConsecutiveFailures,
	}
	if d.NotificationGroupID != nil {
		p.NotificationGroupID = uuid.NullUUID{UUID: uuid.UUID(*d.NotificationGroupID), Valid: true}
	}

	return nil
}

type PgChannel struct {
	ID       uuid.UUID       `db:"id"       goqu:"skipinsert"`
	GroupID  uuid.UUID       `db:"group_id"`
	Name     string          `db:"name"`
	Type     string          `db:"type"`
	Format   string          `db:"format"`
	Config   json.RawMessage `db:"config"`
	IsActive bool            `db:"is_active"`
}

func (p *PgChannel) ToDomain() (*domain.Channel, error) {
	config := map[string]string{}
	if len(p.Config) > 0 {
		if err := json.Unmarshal(p.Config, &config); err != nil {
			return nil, fmt.Errorf("could not unmarshal channel config: %w", err)
		}
	}

	return &domain.Channel{
		ID:       domain.ChannelID(p.ID),
		GroupID:  domain.GroupID(p.GroupID),
		Name:     p.Name,
		Type:     domain.ChannelType(p.Type),
		Format:   domain.ChannelFormat(p.Format),
		Config:   config,
		IsActive: p.IsActive,
	}, nil
}

type PgNotificationLog struct {
	ID          uuid.UUID     `db:"id"                goqu:"skipinsert"`
	DomainID    uuid.UUID     `db:"domain_id"`
	Type        string        `db:"notification_type"`
	ChannelID   uuid.NullUUID `db:"channel_id"`
	Channel     string        `db:"channel"`
	Message     string        `db:"message"`
	SentAt      time.Time     `db:"sent_at"`
	Success     bool          `db:"success"`
	ErrorDetail string        `db:"error_detail"`
}

func (p *PgNotificationLog) FromDomain(entry domain.NotificationLog) {
	*p = PgNotificationLog{
		DomainID:    uuid.UUID(entry.DomainID),
		Type:        string(entry.Type),
		Channel:     string(entry.Channel),
		Message:     entry.Message,
		SentAt:      entry.SentAt,
		Success:     entry.Success,
		ErrorDetail: entry.ErrorDetail,
	}
	if entry.ChannelID != nil {
		p.ChannelID = uuid.NullUUID{UUID: uuid.UUID(*entry.ChannelID), Valid: true}
	}
}

type PgErrorLog struct {
	ID              uuid.UUID       `db:"id"               goqu:"skipinsert"`
	Kind            string          `db:"kind"`
	Location        string          `db:"location"`
	Message         string          `db:"message"`
	Context         json.RawMessage `db:"context"`
	OccurrenceCount int             `db:"occurrence_count"`
	FirstSeen       time.Time       `db:"first_seen"`
	LastSeen        time.Time       `db:"last_seen"`
	Resolved        bool            `db:"resolved"`
	ResolvedAt      sql.NullTime    `db:"resolved_at"`
}

func (p *PgErrorLog) ToDomain() (*domain.ErrorSignature, error) {
	var ctx map[string]any
	if len(p.Context) > 0 {
		if err := json.Unmarshal(p.Context, &ctx); err != nil {
			return nil, fmt.Errorf("could not unmarshal error context: %w", err)
		}
	}

	return &domain.ErrorSignature{
		ID:              p.ID,
		Kind:            p.Kind,
		Location:        p.Location,
		Message:         p.Message,
		Context:         ctx,
		OccurrenceCount: p.OccurrenceCount,
		FirstSeen:       p.FirstSeen,
		LastSeen:        p.LastSeen,
		Resolved:        p.Resolved,
		ResolvedAt:      timePtr(p.ResolvedAt),
	}, nil
}

type PgCheckRun struct {
	ID         uuid.UUID    `db:"id"          goqu:"skipinsert"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
	Checked    int          `db:"checked"`
	Succeeded  int          `db:"succeeded"`
	Preserved  int          `db:"preserved"`
	Errored    int          `db:"errored"`
	Retried    int          `db:"retried"`
	Notified   int          `db:"notified"`
	Suppressed int          `db:"suppressed"`
}

func (p *PgCheckRun) ToDomain() domain.CheckRun {
	return domain.CheckRun{
		ID:         p.ID,
		StartedAt:  p.StartedAt,
		FinishedAt: timePtr(p.FinishedAt),
		Checked:    p.Checked,
		Succeeded:  p.Succeeded,
		Preserved:  p.Preserved,
		Errored:    p.Errored,
		Retried:    p.Retried,
		Notified:   p.Notified,
		Suppressed: p.Suppressed,
	}
}

func pgDomainsToDomain(rows []PgDomain) ([]domain.Domain, error) {
	out := make([]domain.Domain, 0, len(rows))
	for _, row := range rows {
		d, err := row.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time

	return &v
}
