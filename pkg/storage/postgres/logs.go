package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"domainwatch/pkg/domain"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	notificationLogsTable = "notification_logs"
	errorLogsTable        = "error_logs"
)

func (p *PgSQL) WasSentRecently(
	ctx context.Context,
	id domain.DomainID,
	t domain.NotificationType,
	since time.Time,
) (bool, error) {
	count, err := p.Builder.From(notificationLogsTable).
		Where(
			goqu.I("domain_id").Eq(uuid.UUID(id)),
			goqu.I("notification_type").Eq(string(t)),
			goqu.I("success").IsTrue(),
			goqu.I("sent_at").Gte(since),
		).
		CountContext(ctx)
	if err != nil {
		return false, fmt.Errorf("could not count recent notifications: %w", err)
	}

	return count > 0, nil
}

func (p *PgSQL) LogNotifications(ctx context.Context, entries ...domain.NotificationLog) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]PgNotificationLog, len(entries))
	for i, entry := range entries {
		rows[i].FromDomain(entry)
	}

	if _, err := p.Builder.Insert(notificationLogsTable).Rows(rows).Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not store notification logs into pg: %w", err)
	}

	return nil
}

// logErrorQuery relies on the partial unique index over live signatures.
// goqu cannot render a conflict target with an index predicate.
const logErrorQuery = `
INSERT INTO error_logs (kind, location, message, context, first_seen, last_seen)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (kind, location, md5(message)) WHERE NOT resolved
DO UPDATE SET occurrence_count = error_logs.occurrence_count + 1,
              last_seen        = GREATEST(error_logs.last_seen, excluded.last_seen),
              context          = excluded.context
RETURNING id`

func (p *PgSQL) LogError(ctx context.Context, event domain.ErrorEvent, at time.Time) (uuid.UUID, error) {
	errCtx := event.Context
	if errCtx == nil {
		errCtx = map[string]any{}
	}
	b, err := json.Marshal(errCtx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("could not marshal error context: %w", err)
	}

	var id uuid.UUID
	if err := p.DB.QueryRowContext(ctx, logErrorQuery,
		event.Kind, event.Location, event.Message, string(b), at).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("could not log error into pg: %w", err)
	}

	return id, nil
}

func (p *PgSQL) ResolveError(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := p.Builder.Update(errorLogsTable).
		Set(goqu.Record{"resolved": true, "resolved_at": at}).
		Where(goqu.I("id").Eq(id), goqu.I("resolved").IsFalse()).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve error in pg: %w", err)
	}

	return nil
}

func (p *PgSQL) ErrorSignatures(ctx context.Context, withResolved bool) ([]domain.ErrorSignature, error) {
	ds := p.Builder.From(errorLogsTable).Order(goqu.I("last_seen").Desc(), goqu.I("id").Asc())
	if !withResolved {
		ds = ds.Where(goqu.I("resolved").IsFalse())
	}

	var rows []PgErrorLog
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch error signatures from pg: %w", err)
	}

	out := make([]domain.ErrorSignature, 0, len(rows))
	for _, row := range rows {
		sig, err := row.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *sig)
	}

	return out, nil
}
