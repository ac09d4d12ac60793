package worker_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"domainwatch/internal/checker"
	mockchecker "domainwatch/internal/checker/mock"
	"domainwatch/internal/worker"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	os.Exit(m.Run())
}

func makeJob(id int64, reason string) *river.Job[worker.CheckRunArgs] {
	return &river.Job[worker.CheckRunArgs]{
		JobRow: &rivertype.JobRow{ID: id},
		Args:   worker.CheckRunArgs{Reason: reason},
	}
}

func TestCheckRunWorker_Work_Success(t *testing.T) {
	ctrl := gomock.NewController(t)

	mock := mockchecker.NewMockChecker(ctrl)
	w := worker.NewCheckRunWorker(mock, time.Hour)

	mock.EXPECT().Run(gomock.Any()).Return(domain.CheckRun{ID: uuid.New(), Checked: 3}, nil)

	require.NoError(t, w.Work(context.Background(), makeJob(1, "manual")))
	require.Equal(t, time.Hour, w.Timeout(makeJob(1, "manual")))
}

func TestCheckRunWorker_Work_ErrorWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)

	mock := mockchecker.NewMockChecker(ctrl)
	w := worker.NewCheckRunWorker(mock, time.Hour)

	runErr := errors.New("could not list active domains: boom")
	mock.EXPECT().Run(gomock.Any()).Return(domain.CheckRun{}, runErr)

	err := w.Work(context.Background(), makeJob(2, "periodic"))
	require.ErrorIs(t, err, runErr)
	var cancelErr *river.JobCancelError
	require.NotErrorAs(t, err, &cancelErr)
}

func TestCheckRunWorker_Work_TimeoutCancels(t *testing.T) {
	ctrl := gomock.NewController(t)

	mock := mockchecker.NewMockChecker(ctrl)
	w := worker.NewCheckRunWorker(mock, time.Millisecond)

	mock.EXPECT().Run(gomock.Any()).Return(domain.CheckRun{}, context.DeadlineExceeded)

	err := w.Work(context.Background(), makeJob(3, "periodic"))
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestCheckRunWorker_Work_SnoozesOverlappingRun(t *testing.T) {
	ctrl := gomock.NewController(t)

	mock := mockchecker.NewMockChecker(ctrl)
	w := worker.NewCheckRunWorker(mock, time.Hour)

	started := make(chan struct{})
	release := make(chan struct{})
	mock.EXPECT().Run(gomock.Any()).
		DoAndReturn(func(context.Context) (domain.CheckRun, error) {
			close(started)
			<-release

			return domain.CheckRun{}, nil
		}).Times(1)

	done := make(chan error, 1)
	go func() { done <- w.Work(context.Background(), makeJob(4, "periodic")) }()
	<-started

	err := w.Work(context.Background(), makeJob(5, "manual"))
	var snoozeErr *river.JobSnoozeError
	require.ErrorAs(t, err, &snoozeErr)
	require.Equal(t, time.Minute, snoozeErr.Duration)

	close(release)
	require.NoError(t, <-done)
}

func TestCheckRunArgs(t *testing.T) {
	args := worker.CheckRunArgs{Reason: "manual"}
	require.Equal(t, "check_run", args.Kind())

	opts := args.InsertOpts()
	require.Equal(t, 3, opts.MaxAttempts)
	require.False(t, opts.UniqueOpts.ByArgs)
	require.Contains(t, opts.UniqueOpts.ByState, rivertype.JobStateRunning)
	require.NotContains(t, opts.UniqueOpts.ByState, rivertype.JobStateCompleted)
}

type fakeJobs struct {
	args river.JobArgs
	dup  bool
	err  error
}

func (f *fakeJobs) AddJob(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
	f.args = args

	return !f.dup, f.err
}

func TestEnqueue(t *testing.T) {
	jobs := &fakeJobs{}
	added, err := worker.Enqueue(context.Background(), jobs, "manual")
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, worker.CheckRunArgs{Reason: "manual"}, jobs.args)

	jobs.dup = true
	added, err = worker.Enqueue(context.Background(), jobs, "manual")
	require.NoError(t, err)
	require.False(t, added)

	jobs.err = errors.New("db down")
	_, err = worker.Enqueue(context.Background(), jobs, "manual")
	require.ErrorIs(t, err, jobs.err)
}

func TestPeriodicJobs(t *testing.T) {
	require.Nil(t, worker.PeriodicJobs(worker.Options{}))
	require.Len(t, worker.PeriodicJobs(worker.Options{Interval: 24 * time.Hour, RunOnStart: true}), 1)
}

var _ checker.Checker = (*mockchecker.MockChecker)(nil)
