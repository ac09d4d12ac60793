package postgres

import (
	"context"
	"fmt"
	"time"

	"domainwatch/pkg/domain"

	"github.com/doug-martin/goqu/v9"
)

const runsTable = "check_runs"

func (p *PgSQL) StartRun(ctx context.Context, startedAt time.Time) (domain.CheckRun, error) {
	var row PgCheckRun
	if _, err := p.Builder.Insert(runsTable).
		Rows(PgCheckRun{StartedAt: startedAt}).
		Returning(&PgCheckRun{}).
		Executor().ScanStructContext(ctx, &row); err != nil {
		return domain.CheckRun{}, fmt.Errorf("could not store run into pg: %w", err)
	}

	return row.ToDomain(), nil
}

func (p *PgSQL) FinishRun(ctx context.Context, run domain.CheckRun) error {
	_, err := p.Builder.Update(runsTable).
		Set(goqu.Record{
			"finished_at": nullTime(run.FinishedAt),
			"checked":     run.Checked,
			"succeeded":   run.Succeeded,
			"preserved":   run.Preserved,
			"errored":     run.Errored,
			"retried":     run.Retried,
			"notified":    run.Notified,
			"suppressed":  run.Suppressed,
		}).
		Where(goqu.I("id").Eq(run.ID)).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not finish run in pg: %w", err)
	}

	return nil
}
