package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "directory.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
	assert.Equal(t, 100, cfg.Anthropic.MaxBatchSize)
	assert.Equal(t, 3, cfg.Anthropic.SmallBatchThreshold)
	assert.Equal(t, 20, cfg.Sourcing.ResultsPerQuery)
	assert.Equal(t, "week", cfg.Sourcing.Recency)
	assert.Equal(t, 3, cfg.Enrich.MaxAttempts)
	assert.Equal(t, 300, cfg.Enrich.ClaimTTLSecs)
	assert.InDelta(t, 0.5, cfg.Enrich.AggregatorMinConf, 0.001)
	assert.Equal(t, 3, cfg.Review.MaxAttempts)
	assert.InDelta(t, 0.7, cfg.Review.ConfidenceThreshold, 0.001)
	assert.Equal(t, "assets", cfg.Assets.Dir)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/directory
log:
  level: debug
  format: console
server:
  port: 9090
review:
  confidence_threshold: 0.8
filter:
  blocklist:
    - spam.example
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.8, cfg.Review.ConfidenceThreshold, 0.001)
	assert.Equal(t, []string{"spam.example"}, cfg.Filter.Blocklist)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Enrich.MaxAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DIRECTORY_STORE_DRIVER", "postgres")
	t.Setenv("DIRECTORY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DIRECTORY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestValidateFirecrawl(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("firecrawl")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "firecrawl.key is required")

	cfg.Firecrawl.Key = "fc-key"
	assert.NoError(t, cfg.Validate("firecrawl"))
}

func TestValidateAnthropic(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("anthropic")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("anthropic"))
}

func TestValidateStore(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	err := cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")

	cfg.Store.Path = "directory.db"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.Driver = "postgres"
	err = cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/directory"
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.Driver = "oracle"
	err = cfg.Validate("store")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidateReview(t *testing.T) {
	cfg := &Config{}
	cfg.Review.ConfidenceThreshold = 0.7
	assert.NoError(t, cfg.Validate("review"))

	cfg.Review.ConfidenceThreshold = 1.1
	err := cfg.Validate("review")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_threshold")
}

func TestValidateUnknownSection(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("bogus")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown validation section")
}
