package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivertype"
)

// AddJob enqueues a River job, in practice a check run requested by the
// enqueue command or a seed. Inside a transaction the job only becomes
// visible to the worker once the transaction commits. The returned bool is
// false when River skipped the insert because an identical unique job, such
// as a check run already waiting, exists.
func (p *PgSQL) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	var (
		res *rivertype.JobInsertResult
		err error
	)

	switch db := p.DB.(type) {
	case *sql.Tx:
		res, err = insertJob(riverdatabasesql.New(nil), func(c *river.Client[*sql.Tx]) (*rivertype.JobInsertResult, error) {
			return c.InsertTx(ctx, db, args, opts)
		})
	case *sql.DB:
		res, err = insertJob(riverdatabasesql.New(db), func(c *river.Client[*sql.Tx]) (*rivertype.JobInsertResult, error) {
			return c.Insert(ctx, args, opts)
		})
	default:
		return false, fmt.Errorf("could not insert %s job: unsupported executor %T", args.Kind(), p.DB)
	}
	if err != nil {
		return false, fmt.Errorf("could not insert %s job: %w", args.Kind(), err)
	}

	return !res.UniqueSkippedAsDuplicate, nil
}

// insertJob builds an insert-only River client on driver and runs insert with it.
func insertJob(
	driver *riverdatabasesql.Driver,
	insert func(c *river.Client[*sql.Tx]) (*rivertype.JobInsertResult, error),
) (*rivertype.JobInsertResult, error) {
	client, err := river.NewClient[*sql.Tx](driver, &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create river client: %w", err)
	}

	return insert(client)
}
