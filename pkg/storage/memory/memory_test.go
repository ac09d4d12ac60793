package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/storage"
	"domainwatch/pkg/storage/memory"

	"github.com/stretchr/testify/require"
)

func TestStoreDomains(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.UpsertDomains(ctx,
		domain.Domain{Name: "b.com", IsActive: true},
		domain.Domain{Name: "a.com", IsActive: true},
		domain.Domain{Name: "off.com", IsActive: false},
	)
	require.NoError(t, err)

	active, err := s.ActiveDomains(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "a.com", active[0].Name)
	require.Equal(t, domain.StatusUnknown, active[0].Status)

	d := active[0]
	d.Nameservers = []string{"ns1.a.com"}
	d.Status = domain.StatusActive
	require.NoError(t, s.UpdateDomainCheck(ctx, d))

	now := time.Now()
	require.NoError(t, s.MarkDomainChecked(ctx, d.ID, storage.CheckMark{CheckedAt: now, ConsecutiveFailures: 1}))

	got, err := s.DomainByName(ctx, "a.com")
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, got.Status)
	require.Equal(t, 1, got.ConsecutiveFailures)
	require.Equal(t, []string{"ns1.a.com"}, got.Nameservers)

	// Returned values are copies.
	got.Nameservers[0] = "changed"
	again, err := s.DomainByName(ctx, "a.com")
	require.NoError(t, err)
	require.Equal(t, "ns1.a.com", again.Nameservers[0])

	missing, err := s.DomainByName(ctx, "none.com")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStoreNotificationLog(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	stored, err := s.UpsertDomains(ctx, domain.Domain{Name: "example.com", IsActive: true})
	require.NoError(t, err)
	id := stored[0].ID

	now := time.Now()
	require.NoError(t, s.LogNotifications(ctx,
		domain.NotificationLog{DomainID: id, Type: domain.NotificationExpired, SentAt: now, Success: false},
	))
	sent, err := s.WasSentRecently(ctx, id, domain.NotificationExpired, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.False(t, sent)

	require.NoError(t, s.LogNotifications(ctx,
		domain.NotificationLog{DomainID: id, Type: domain.NotificationExpired, SentAt: now, Success: true},
	))
	sent, err = s.WasSentRecently(ctx, id, domain.NotificationExpired, now.Add(-23*time.Hour))
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, s.Notifications(), 2)
}

func TestStoreErrorLog(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	event := domain.ErrorEvent{Kind: "TIMEOUT", Location: "checker.lookup", Message: "example.de: TIMEOUT"}
	now := time.Now()

	id1, err := s.LogError(ctx, event, now)
	require.NoError(t, err)
	id2, err := s.LogError(ctx, event, now.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	sigs, err := s.ErrorSignatures(ctx, false)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	require.Equal(t, 2, sigs[0].OccurrenceCount)

	require.NoError(t, s.ResolveError(ctx, id1, now))
	id3, err := s.LogError(ctx, event, now.Add(2*time.Second))
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)

	all, err := s.ErrorSignatures(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, id3, all[0].ID)
}

func TestSeedApply(t *testing.T) {
	t.Setenv("TEST_TG_TOKEN", "123:abc")
	path := filepath.Join(t.TempDir(), "domains.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
groups:
  - name: ops
    channels:
      - type: telegram
        config:
          bot_token: "${TEST_TG_TOKEN}"
          chat_id: "-100"
      - type: webhook
        format: slack
        active: false
        config:
          url: https://hooks.example.com/x
domains:
  - name: Example.COM
    group: ops
  - name: example.nl
    expiration_date: 2026-01-01
    status: active
  - name: old.org
    active: false
`), 0o600))

	seed, err := memory.LoadSeed(path)
	require.NoError(t, err)

	ctx := context.Background()
	s := memory.New()
	require.NoError(t, seed.Apply(ctx, s))

	active, err := s.ActiveDomains(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "example.com", active[0].Name)
	require.Equal(t, memory.GroupID("ops"), *active[0].NotificationGroupID)
	require.Equal(t, domain.StatusActive, active[1].Status)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *active[1].ExpirationDate)

	channels, err := s.ActiveChannels(ctx, memory.GroupID("ops"))
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "123:abc", channels[0].Setting("bot_token"))

	// Re-applying keeps the existing channels.
	require.NoError(t, seed.Apply(ctx, s))
	channels, err = s.ActiveChannels(ctx, memory.GroupID("ops"))
	require.NoError(t, err)
	require.Len(t, channels, 1)
}

func TestSeedValidation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]memory.Seed{
		"unknown group": {Domains: []memory.SeedDomain{{Name: "a.com", Group: "nope"}}},
		"bad name":      {Domains: []memory.SeedDomain{{Name: "localhost"}}},
		"bad status":    {Domains: []memory.SeedDomain{{Name: "a.com", Status: "fine"}}},
		"bad date":      {Domains: []memory.SeedDomain{{Name: "a.com", ExpirationDate: "soon"}}},
		"bad channel":   {Groups: []memory.SeedGroup{{Name: "g", Channels: []memory.SeedChannel{{Type: "sms"}}}}},
		"bad format":    {Groups: []memory.SeedGroup{{Name: "g", Channels: []memory.SeedChannel{{Type: "webhook", Format: "xml"}}}}},
		"unnamed group": {Groups: []memory.SeedGroup{{}}},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, seed.Apply(ctx, memory.New()))
		})
	}
}
