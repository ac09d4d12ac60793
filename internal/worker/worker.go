// Package worker runs check runs as River jobs, on a periodic schedule and on
// demand.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"domainwatch/internal/checker"
	"domainwatch/internal/config"
	"domainwatch/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Options configure the job client.
type Options struct {
	// Interval between periodic runs. Zero disables the periodic job.
	Interval   time.Duration
	RunOnStart bool
	JobTimeout time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Interval:   cfg.Scheduler.Interval,
		RunOnStart: cfg.Scheduler.RunOnStart,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}
}

// PeriodicJobs returns the schedule of check runs for opts.
func PeriodicJobs(opts Options) []*river.PeriodicJob {
	if opts.Interval <= 0 {
		return nil
	}

	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(opts.Interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return CheckRunArgs{Reason: "periodic"}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: opts.RunOnStart},
		),
	}
}

func Start(ctx context.Context, dbPool *pgxpool.Pool, chk checker.Checker, opts Options) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewCheckRunWorker(chk, opts.JobTimeout))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			// one run at a time; a run already fans out per TLD
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(opts),
		JobTimeout:   opts.JobTimeout,
		Logger:       slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
