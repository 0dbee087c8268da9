package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Analyzer.Interval.Duration)
	assert.Equal(t, 30*time.Second, cfg.Analyzer.TradeWindow.Duration)
	assert.Equal(t, 15, cfg.Analyzer.OrderbookSize)
}

func TestLoad_TOMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"

[analyzer]
pairs = ["BTC/KRW", "ETH"]
interval = "2s"

[server]
port = 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, []string{"BTC/KRW", "ETH"}, cfg.Analyzer.Pairs)
	assert.Equal(t, 2*time.Second, cfg.Analyzer.Interval.Duration)
	assert.Equal(t, 30*time.Second, cfg.Analyzer.TradeWindow.Duration)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://api.coinone.co.kr", cfg.Coinone.RestHost)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Mode, cfg.Mode)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[analyzer]
interval = "soon"`), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COINONEBOT_COINONE_ACCESS_TOKEN", "tok")
	t.Setenv("COINONEBOT_COINONE_SECRET_KEY", "sec")
	t.Setenv("COINONEBOT_COINONE_BREAKER_FAILURES", "9")
	t.Setenv("COINONEBOT_ANALYZER_PAIRS", " BTC/KRW , ,XRP ")
	t.Setenv("COINONEBOT_ANALYZER_TRADE_WINDOW", "1m")
	t.Setenv("COINONEBOT_ORDERS_ENABLED", "true")
	t.Setenv("COINONEBOT_ORDERS_MAX_SLIPPAGE_PCT", "0.25")
	t.Setenv("COINONEBOT_SERVER_PORT", "not-a-number")
	t.Setenv("COINONEBOT_MODE", "full")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Coinone.AccessToken)
	assert.Equal(t, uint32(9), cfg.Coinone.BreakerFailures)
	assert.Equal(t, []string{"BTC/KRW", "XRP"}, cfg.Analyzer.Pairs)
	assert.Equal(t, time.Minute, cfg.Analyzer.TradeWindow.Duration)
	assert.True(t, cfg.Orders.Enabled)
	assert.Equal(t, 0.25, cfg.Orders.MaxSlippagePct)
	assert.Equal(t, 8000, cfg.Server.Port, "unparseable override is ignored")
	assert.Equal(t, "full", cfg.Mode)
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Analyzer.OrderbookSize = 7
	cfg.Coinone.AccessToken = "only-token"
	cfg.Orders.Enabled = true
	cfg.S3.ArchiveEnabled = true

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "config validation failed:\n  - ")
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, "orderbook_size must be 5, 10, 15 or 16, got 7")
	assert.Contains(t, msg, "access_token and secret_key must be set together")
	assert.Contains(t, msg, "orders: enabled requires")
	assert.Contains(t, msg, "archive_enabled requires")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Coinone.AccessToken = "tok"
	cfg.Coinone.SecretKey = "sec"
	cfg.Server.APIKey = "key"
	cfg.Postgres.Password = ""

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Coinone.AccessToken)
	assert.Equal(t, "***", out.Coinone.SecretKey)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.Postgres.Password)
	assert.Equal(t, "tok", cfg.Coinone.AccessToken)

	out.Analyzer.Pairs[0] = "XRP/KRW"
	assert.Equal(t, "BTC/KRW", cfg.Analyzer.Pairs[0])
}
