package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"domainwatch/internal/checker"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/storage"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"
)

// CheckRunArgs are the arguments of a full check run job.
type CheckRunArgs struct {
	// Reason tells what queued the run, e.g. "periodic" or "manual".
	Reason string `json:"reason"`
}

// Kind returns the River job kind used to register and dispatch the check run worker.
func (CheckRunArgs) Kind() string { return "check_run" }

// InsertOpts keep at most one queued or running check run. Finished runs do
// not count, so the next period can always insert.
func (CheckRunArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// Enqueue inserts a check run job. It reports false when a run is already
// queued or running.
func Enqueue(ctx context.Context, jobs storage.JobStorage, reason string) (bool, error) {
	added, err := jobs.AddJob(ctx, CheckRunArgs{Reason: reason}, nil)
	if err != nil {
		return false, fmt.Errorf("could not enqueue check run: %w", err)
	}

	return added, nil
}

// CheckRunWorker runs the checker for each check_run job. Runs never overlap
// inside one process: a job arriving while another run is in progress is
// snoozed.
type CheckRunWorker struct {
	river.WorkerDefaults[CheckRunArgs]

	checker checker.Checker
	timeout time.Duration
	snooze  time.Duration
	running atomic.Bool
}

// NewCheckRunWorker constructs a CheckRunWorker. A zero timeout leaves River's
// default job timeout in place.
func NewCheckRunWorker(chk checker.Checker, timeout time.Duration) *CheckRunWorker {
	return &CheckRunWorker{checker: chk, timeout: timeout, snooze: time.Minute}
}

// Timeout bounds a whole run.
func (w *CheckRunWorker) Timeout(*river.Job[CheckRunArgs]) time.Duration {
	return w.timeout
}

func (w *CheckRunWorker) Work(ctx context.Context, job *river.Job[CheckRunArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.String("reason", job.Args.Reason))

	if !w.running.CompareAndSwap(false, true) {
		logger.Info(ctx, "check run already in progress, snoozing job")

		return river.JobSnooze(w.snooze) //nolint: wrapcheck
	}
	defer w.running.Store(false)

	run, err := w.checker.Run(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error(ctx, "check run timed out", zap.Duration("timeout", w.timeout))

			return river.JobCancel(err) //nolint: wrapcheck
		}
		logger.Error(ctx, "check run failed", zap.Error(err))

		return fmt.Errorf("could not complete check run: %w", err)
	}

	logger.Info(ctx, "check run job done",
		zap.String("run_id", run.ID.String()),
		zap.Int("checked", run.Checked),
		zap.Int("errored", run.Errored))

	return nil
}
