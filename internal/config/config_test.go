package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Scan.TopK)
	assert.Equal(t, 189, cfg.Markets["metamask-fdv-above-one-day-after-launch"])
	assert.Equal(t, 0, cfg.Markets["opinion-fdv-above-one-day-after-launch"])
	assert.Len(t, cfg.Markets, 14)
	assert.Equal(t, "will-base-launch-a-token-in-2026",
		cfg.PredictFun.SlugAliases["will-base-launch-a-token-in-2025-341"])
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "verbose"
	cfg.Scan.MinBet = 0
	cfg.Markets = map[string]int{"x": -1}
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		`unknown log_level "verbose"`,
		"scan: min_bet must be > 0",
		`markets: opinion id for "x"`,
		"redis: addr must not be empty",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"

[scan]
top_k = 3
interval = "90s"

[markets]
"btc-2026" = 7
"eth-2026" = 0

[redis]
enabled = true
`), 0o644))

	t.Setenv("CROSSARB_SCAN_CAPITAL", "250.5")
	t.Setenv("CROSSARB_REDIS_PASSWORD", "hunter2")
	t.Setenv("CROSSARB_SERVER_CORS_ORIGINS", "http://a, http://b,")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 3, cfg.Scan.TopK)
	assert.Equal(t, 90*time.Second, cfg.Scan.Interval.Duration)
	assert.Equal(t, 250.5, cfg.Scan.Capital)
	assert.Equal(t, map[string]int{"btc-2026": 7, "eth-2026": 0}, cfg.Markets)
	assert.Equal(t, []string{"btc-2026", "eth-2026"}, cfg.MarketSlugs())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10, cfg.PredictFun.Workers)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Markets, 14)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.PredictFun.APIKey = "pk"
	cfg.Redis.Password = "pw"
	cfg.Notify.TelegramToken = "tg"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.PredictFun.APIKey)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Opinion.APIKey)
	assert.Equal(t, "pk", cfg.PredictFun.APIKey)

	out.Markets["new"] = 1
	_, ok := cfg.Markets["new"]
	assert.False(t, ok)
}

func TestLoad_ExampleMatchesDefaults(t *testing.T) {
	for _, key := range []string{"PREDICT_DOT_FUN_API_KEY", "OPINION_API_KEY", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(filepath.Join("..", "..", "config.example.toml"))
	require.NoError(t, err)

	want := Defaults()
	assert.Equal(t, want.Markets, cfg.Markets)
	assert.Equal(t, want.PredictFun, cfg.PredictFun)
	assert.Equal(t, want.Opinion, cfg.Opinion)
	assert.Equal(t, want.Scan, cfg.Scan)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Notify, cfg.Notify)
	require.NoError(t, cfg.Validate())
}
