package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COINONEBOT_* environment variable overrides, and
// returns the final Config. An empty path or a missing file leaves the
// defaults in place. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COINONEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Coinone ──
	setStr(&cfg.Coinone.RestHost, "COINONEBOT_COINONE_REST_HOST")
	setStr(&cfg.Coinone.WsHost, "COINONEBOT_COINONE_WS_HOST")
	setStr(&cfg.Coinone.AccessToken, "COINONEBOT_COINONE_ACCESS_TOKEN")
	setStr(&cfg.Coinone.SecretKey, "COINONEBOT_COINONE_SECRET_KEY")
	setFloat64(&cfg.Coinone.RequestsPerSecond, "COINONEBOT_COINONE_REQUESTS_PER_SECOND")
	setInt(&cfg.Coinone.Burst, "COINONEBOT_COINONE_BURST")
	setDuration(&cfg.Coinone.Timeout, "COINONEBOT_COINONE_TIMEOUT")
	setUint32(&cfg.Coinone.BreakerFailures, "COINONEBOT_COINONE_BREAKER_FAILURES")
	setDuration(&cfg.Coinone.BreakerTimeout, "COINONEBOT_COINONE_BREAKER_TIMEOUT")
	setDuration(&cfg.Coinone.ReconnectInterval, "COINONEBOT_COINONE_RECONNECT_INTERVAL")

	// ── Analyzer ──
	setStringSlice(&cfg.Analyzer.Pairs, "COINONEBOT_ANALYZER_PAIRS")
	setDuration(&cfg.Analyzer.Interval, "COINONEBOT_ANALYZER_INTERVAL")
	setDuration(&cfg.Analyzer.TradeWindow, "COINONEBOT_ANALYZER_TRADE_WINDOW")
	setInt(&cfg.Analyzer.OrderbookSize, "COINONEBOT_ANALYZER_ORDERBOOK_SIZE")
	setFloat64(&cfg.Analyzer.BurstWindow, "COINONEBOT_ANALYZER_BURST_WINDOW")
	setFloat64(&cfg.Analyzer.BurstThreshold, "COINONEBOT_ANALYZER_BURST_THRESHOLD")
	setDuration(&cfg.Analyzer.CacheTTL, "COINONEBOT_ANALYZER_CACHE_TTL")

	// ── Orders ──
	setBool(&cfg.Orders.Enabled, "COINONEBOT_ORDERS_ENABLED")
	setDuration(&cfg.Orders.RulesCacheTTL, "COINONEBOT_ORDERS_RULES_CACHE_TTL")
	setFloat64(&cfg.Orders.MaxSingleOrder, "COINONEBOT_ORDERS_MAX_SINGLE_ORDER")
	setFloat64(&cfg.Orders.SpreadThresholdPct, "COINONEBOT_ORDERS_SPREAD_THRESHOLD_PCT")
	setFloat64(&cfg.Orders.MaxSlippagePct, "COINONEBOT_ORDERS_MAX_SLIPPAGE_PCT")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "COINONEBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "COINONEBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // conventional alias
	setStr(&cfg.Postgres.Host, "COINONEBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COINONEBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COINONEBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COINONEBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COINONEBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COINONEBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COINONEBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COINONEBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COINONEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "COINONEBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "COINONEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COINONEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COINONEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COINONEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COINONEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COINONEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "COINONEBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "COINONEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COINONEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "COINONEBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COINONEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COINONEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COINONEBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COINONEBOT_S3_FORCE_PATH_STYLE")
	setBool(&cfg.S3.ArchiveEnabled, "COINONEBOT_S3_ARCHIVE_ENABLED")
	setInt(&cfg.S3.ArchiveRetentionDays, "COINONEBOT_S3_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.S3.ArchiveInterval, "COINONEBOT_S3_ARCHIVE_INTERVAL")
	setBool(&cfg.S3.ArchivePrune, "COINONEBOT_S3_ARCHIVE_PRUNE")

	// ── Server ──
	setInt(&cfg.Server.Port, "COINONEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "COINONEBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "COINONEBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "COINONEBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "COINONEBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COINONEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COINONEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COINONEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COINONEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COINONEBOT_MODE")
	setStr(&cfg.LogLevel, "COINONEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
