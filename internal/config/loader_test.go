package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "{}\n"))
	require.NoError(t, err)

	require.Equal(t, "libsql", cfg.Store.Driver)
	require.NotEmpty(t, cfg.Store.Path)
	require.Equal(t, "markdown", cfg.Reports.Format)
	require.Equal(t, "gemini", cfg.Advisor.DefaultProvider)
	require.Equal(t, 24*time.Hour, cfg.Advisor.CacheTTL)
	require.Equal(t, 3, cfg.Engine.MaxAttempts)
	require.Equal(t, time.Second, cfg.Engine.MinInterval)
	require.Equal(t, "info", cfg.Logging.Level)
	require.True(t, cfg.Health.Enabled)
	require.False(t, cfg.Metrics.Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
store:
  path: ":memory:"
reports:
  dir: /tmp/folio-reports
  format: table
engine:
  max_attempts: 5
  min_interval: 2s
advisor:
  routing:
    analysis: openai
`))
	require.NoError(t, err)

	require.Equal(t, ":memory:", cfg.Store.Path)
	require.Equal(t, "/tmp/folio-reports", cfg.Reports.Dir)
	require.Equal(t, "table", cfg.Reports.Format)
	require.Equal(t, 5, cfg.Engine.MaxAttempts)
	require.Equal(t, 2*time.Second, cfg.Engine.MinInterval)
	require.Equal(t, "openai", cfg.Advisor.ProviderFor("analysis"))
	require.Equal(t, "gemini", cfg.Advisor.ProviderFor("suggestions"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FOLIOLENS_ENGINE_MAX_ATTEMPTS", "4")
	t.Setenv("FOLIOLENS_BROKER_API_KEY", "env-key")
	t.Setenv("FOLIOLENS_LOGGING_LEVEL", "debug")

	cfg, err := Load(writeConfigFile(t, "{}\n"))
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Engine.MaxAttempts)
	require.Equal(t, "env-key", cfg.Broker.APIKey)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEngineConfigRetryPolicy(t *testing.T) {
	policy := EngineConfig{}.RetryPolicy()
	require.Equal(t, 3, policy.MaxAttempts)
	require.Equal(t, time.Second, policy.BaseBackoff)
	require.Equal(t, 2.0, policy.Multiplier)

	custom := EngineConfig{MaxAttempts: 6, MinInterval: 500 * time.Millisecond}.RetryPolicy()
	require.Equal(t, 6, custom.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, custom.MinInterval)
	require.Equal(t, time.Second, custom.BaseBackoff)
}
