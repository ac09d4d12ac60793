package postgres_test

import (
	"context"
	"testing"
	"time"

	"domainwatch/pkg/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPgSQL_NotificationLogs(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	stored, err := pg.UpsertDomains(ctx, domain.Domain{Name: "example.com", IsActive: true})
	require.NoError(t, err)
	id := stored[0].ID

	now := time.Now().UTC()
	t7 := domain.ExpiringIn(7)

	sent, err := pg.WasSentRecently(ctx, id, t7, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.False(t, sent)

	require.NoError(t, pg.LogNotifications(ctx,
		domain.NotificationLog{DomainID: id, Type: t7, Channel: domain.ChannelWebhook, SentAt: now, Success: false, ErrorDetail: "500"},
	))
	sent, err = pg.WasSentRecently(ctx, id, t7, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.False(t, sent, "failed deliveries do not suppress")

	require.NoError(t, pg.LogNotifications(ctx,
		domain.NotificationLog{DomainID: id, Type: t7, Channel: domain.ChannelPushover, SentAt: now.Add(-time.Hour), Success: true},
	))
	sent, err = pg.WasSentRecently(ctx, id, t7, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = pg.WasSentRecently(ctx, id, domain.NotificationExpired, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.False(t, sent)

	sent, err = pg.WasSentRecently(ctx, id, t7, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.False(t, sent)
}

func TestPgSQL_LogErrorCollapses(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	event := domain.ErrorEvent{
		Kind:     "RATE_LIMITED",
		Location: "checker.lookup",
		Message:  "example.xyz: RATE_LIMITED",
		Context:  map[string]any{"attempt": 1},
	}
	first := time.Now().UTC().Truncate(time.Second)

	id1, err := pg.LogError(ctx, event, first)
	require.NoError(t, err)
	id2, err := pg.LogError(ctx, event, first.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	sigs, err := pg.ErrorSignatures(ctx, false)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	require.Equal(t, 2, sigs[0].OccurrenceCount)
	require.True(t, first.Equal(sigs[0].FirstSeen))
	require.True(t, first.Add(time.Minute).Equal(sigs[0].LastSeen))

	other := event
	other.Message = "example.org: RATE_LIMITED"
	id3, err := pg.LogError(ctx, other, first)
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)

	require.NoError(t, pg.ResolveError(ctx, id1, first.Add(2*time.Minute)))
	id4, err := pg.LogError(ctx, event, first.Add(3*time.Minute))
	require.NoError(t, err)
	require.NotEqual(t, id1, id4, "a resolved signature that recurs is tracked again")

	all, err := pg.ErrorSignatures(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	live, err := pg.ErrorSignatures(ctx, false)
	require.NoError(t, err)
	require.Len(t, live, 2)
	require.Equal(t, id4, live[0].ID)
	require.Equal(t, 1, live[0].OccurrenceCount)
}

func TestPgSQL_Runs(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	started := time.Now().UTC()

	run, err := pg.StartRun(ctx, started)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, run.ID)

	finished := started.Add(time.Minute)
	run.FinishedAt = &finished
	run.Checked = 4
	run.Succeeded = 3
	run.Errored = 1
	require.NoError(t, pg.FinishRun(ctx, run))
}
