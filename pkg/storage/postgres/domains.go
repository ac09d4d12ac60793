package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	domainsTable  = "domains"
	channelsTable = "notification_channels"
)

// ActiveDomains returns active domains ordered by name.
func (p *PgSQL) ActiveDomains(ctx context.Context) ([]domain.Domain, error) {
	var rows []PgDomain
	if err := p.Builder.From(domainsTable).
		Where(goqu.I("is_active").IsTrue()).
		Order(goqu.I("name").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch active domains from pg: %w", err)
	}

	return pgDomainsToDomain(rows)
}

func (p *PgSQL) DomainByName(ctx context.Context, name string) (*domain.Domain, error) {
	var row PgDomain
	found, err := p.Builder.From(domainsTable).
		Where(goqu.I("name").Eq(name)).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch domain by name: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UpsertDomains inserts domains, or refreshes is_active and the notification
// group of existing ones.
func (p *PgSQL) UpsertDomains(ctx context.Context, domains ...domain.Domain) ([]domain.Domain, error) {
	if len(domains) == 0 {
		return nil, nil
	}

	rows := make([]PgDomain, len(domains))
	for i := range domains {
		if err := rows[i].FromDomain(domains[i]); err != nil {
			return nil, err
		}
	}

	var result []PgDomain
	if err := p.Builder.Insert(domainsTable).
		Rows(rows).
		OnConflict(goqu.DoUpdate("name", goqu.Record{
			"is_active":             goqu.I("excluded.is_active"),
			"notification_group_id": goqu.I("excluded.notification_group_id"),
			"updated_at":            goqu.L("CURRENT_TIMESTAMP"),
		})).
		Returning(&PgDomain{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not upsert domains into pg: %w", err)
	}

	return pgDomainsToDomain(result)
}

func (p *PgSQL) UpdateDomainCheck(ctx context.Context, d domain.Domain) error {
	var row PgDomain
	if err := row.FromDomain(d); err != nil {
		return err
	}

	_, err := p.Builder.Update(domainsTable).
		Set(goqu.Record{
			"registrar":            row.Registrar,
			"registrar_url":        row.RegistrarURL,
			"expiration_date":      row.ExpirationDate,
			"updated_date":         row.UpdatedDate,
			"abuse_email":          row.AbuseEmail,
			"nameservers":          row.Nameservers,
			"status":               row.Status,
			"last_checked":         row.LastChecked,
			"raw_registry_data":    row.RawRegistryData,
			"consecutive_failures": row.ConsecutiveFailures,
			"updated_at":           goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(goqu.I("id").Eq(uuid.UUID(d.ID))).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not update domain check in pg: %w", err)
	}

	return nil
}

func (p *PgSQL) MarkDomainChecked(ctx context.Context, id domain.DomainID, mark storage.CheckMark) error {
	rec := goqu.Record{
		"last_checked":         mark.CheckedAt,
		"consecutive_failures": mark.ConsecutiveFailures,
		"updated_at":           goqu.L("CURRENT_TIMESTAMP"),
	}
	if mark.Status != "" {
		rec["status"] = string(mark.Status)
	}

	_, err := p.Builder.Update(domainsTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not mark domain checked in pg: %w", err)
	}

	return nil
}

func (p *PgSQL) ActiveChannels(ctx context.Context, groupID domain.GroupID) ([]domain.Channel, error) {
	var rows []PgChannel
	if err := p.Builder.From(channelsTable).
		Where(
			goqu.I("group_id").Eq(uuid.UUID(groupID)),
			goqu.I("is_active").IsTrue(),
		).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch channels from pg: %w", err)
	}

	out := make([]domain.Channel, 0, len(rows))
	for _, row := range rows {
		ch, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}

	return out, nil
}

// StoreChannels inserts channel configurations. It is used by seeding and
// tests; channels are otherwise managed outside the checker.
func (p *PgSQL) StoreChannels(ctx context.Context, channels ...domain.Channel) ([]domain.Channel, error) {
	if len(channels) == 0 {
		return nil, nil
	}

	rows := make([]PgChannel, len(channels))
	for i, ch := range channels {
		config, err := json.Marshal(ch.Config)
		if err != nil {
			return nil, fmt.Errorf("could not marshal channel config: %w", err)
		}
		rows[i] = PgChannel{
			GroupID:  uuid.UUID(ch.GroupID),
			Name:     ch.Name,
			Type:     string(ch.Type),
			Format:   string(ch.Format),
			Config:   config,
			IsActive: ch.IsActive,
		}
	}

	var result []PgChannel
	if err := p.Builder.Insert(channelsTable).
		Rows(rows).
		Returning(&PgChannel{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store channels into pg: %w", err)
	}

	out := make([]domain.Channel, 0, len(result))
	for _, row := range result {
		ch, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}

	return out, nil
}
