package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"domainwatch/internal/config"
	"domainwatch/pkg/registry"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadEnv()
	require.NoError(t, err)

	require.Equal(t, []int{30, 14, 7, 3, 1}, cfg.Checker.Thresholds)
	require.Equal(t, []time.Duration{time.Minute, 2 * time.Minute}, cfg.Checker.RetryDelays)
	require.Equal(t, 3, cfg.Checker.MaxRetries)
	require.Equal(t, 23*time.Hour, cfg.Checker.SuppressionWindow)
	require.Equal(t, 30*24*time.Hour, cfg.Checker.ExpiringSoonWindow)
	require.Equal(t, 5*time.Second, cfg.Checker.GroupCooldown)
	require.Equal(t, time.Second, cfg.Checker.DomainPacing)
}

func TestLoadFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
checker:
  thresholds: [60, 30]
  concurrency: 4
registry:
  overrides:
    - tld: nl
      protocol: whois
      server: whois.domain-registry.nl
`), 0o600))
	t.Setenv("CHECKER_MAX_RETRIES", "5")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, []int{60, 30}, cfg.Checker.Thresholds)
	require.Equal(t, 4, cfg.Checker.Concurrency)
	require.Equal(t, 5, cfg.Checker.MaxRetries)
	require.Equal(t, []registry.Route{
		{TLD: "nl", Protocol: registry.ProtocolWHOIS, Server: "whois.domain-registry.nl"},
	}, cfg.Registry.Overrides)
}
