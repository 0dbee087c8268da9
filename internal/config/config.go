// Package config defines the top-level configuration for the Coinone
// analyzer and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by COINONEBOT_* environment variables.
type Config struct {
	Coinone  CoinoneConfig  `toml:"coinone"`
	Analyzer AnalyzerConfig `toml:"analyzer"`
	Orders   OrdersConfig   `toml:"orders"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// CoinoneConfig holds exchange endpoints, credentials and client limits.
type CoinoneConfig struct {
	RestHost          string   `toml:"rest_host"`
	WsHost            string   `toml:"ws_host"`
	AccessToken       string   `toml:"access_token"`
	SecretKey         string   `toml:"secret_key"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Timeout           duration `toml:"timeout"`
	BreakerFailures   uint32   `toml:"breaker_failures"`
	BreakerTimeout    duration `toml:"breaker_timeout"`
	ReconnectInterval duration `toml:"reconnect_interval"`
}

// HasCredentials reports whether private endpoints can be used.
func (c CoinoneConfig) HasCredentials() bool {
	return c.AccessToken != "" && c.SecretKey != ""
}

// AnalyzerConfig selects the analyzed pairs and the feed cadence.
type AnalyzerConfig struct {
	// Pairs are "TARGET/QUOTE" or bare targets quoted in KRW.
	Pairs          []string `toml:"pairs"`
	Interval       duration `toml:"interval"`
	TradeWindow    duration `toml:"trade_window"`
	OrderbookSize  int      `toml:"orderbook_size"`
	BurstWindow    float64  `toml:"burst_window"`
	BurstThreshold float64  `toml:"burst_threshold"`
	CacheTTL       duration `toml:"cache_ttl"`
}

// OrdersConfig holds the order path tunables.
type OrdersConfig struct {
	Enabled            bool     `toml:"enabled"`
	RulesCacheTTL      duration `toml:"rules_cache_ttl"`
	MaxSingleOrder     float64  `toml:"max_single_order"`
	SpreadThresholdPct float64  `toml:"spread_threshold_pct"`
	MaxSlippagePct     float64  `toml:"max_slippage_pct"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage and archival parameters.
type S3Config struct {
	Enabled              bool     `toml:"enabled"`
	Endpoint             string   `toml:"endpoint"`
	Region               string   `toml:"region"`
	Bucket               string   `toml:"bucket"`
	AccessKey            string   `toml:"access_key"`
	SecretKey            string   `toml:"secret_key"`
	UseSSL               bool     `toml:"use_ssl"`
	ForcePathStyle       bool     `toml:"force_path_style"`
	ArchiveEnabled       bool     `toml:"archive_enabled"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveInterval      duration `toml:"archive_interval"`
	ArchivePrune         bool     `toml:"archive_prune"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Coinone: CoinoneConfig{
			RestHost:          "https://api.coinone.co.kr",
			WsHost:            "wss://stream.coinone.co.kr",
			RequestsPerSecond: 10,
			Burst:             5,
			Timeout:           duration{10 * time.Second},
			BreakerFailures:   5,
			BreakerTimeout:    duration{30 * time.Second},
			ReconnectInterval: duration{5 * time.Second},
		},
		Analyzer: AnalyzerConfig{
			Pairs:          []string{"BTC/KRW"},
			Interval:       duration{5 * time.Second},
			TradeWindow:    duration{30 * time.Second},
			OrderbookSize:  15,
			BurstWindow:    30,
			BurstThreshold: 5,
			CacheTTL:       duration{10 * time.Minute},
		},
		Orders: OrdersConfig{
			Enabled:            false,
			RulesCacheTTL:      duration{10 * time.Minute},
			MaxSingleOrder:     0,
			SpreadThresholdPct: 0.1,
			MaxSlippagePct:     0.5,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "coinonebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:             "http://localhost:9000",
			Region:               "us-east-1",
			Bucket:               "coinonebot-archive",
			ForcePathStyle:       true,
			ArchiveRetentionDays: 30,
			ArchiveInterval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"aggressive_buy_wave", "aggressive_sell_wave", "thin_book_risk", "order_submitted", "error"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"analyze": true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBookSizes are the depths the orderbook endpoint accepts.
var validBookSizes = map[int]bool{5: true, 10: true, 15: true, 16: true}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: analyze, monitor, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Coinone
	if c.Coinone.RestHost == "" {
		errs = append(errs, "coinone: rest_host must not be empty")
	}
	if c.Coinone.RequestsPerSecond <= 0 {
		errs = append(errs, "coinone: requests_per_second must be > 0")
	}
	if (c.Coinone.AccessToken == "") != (c.Coinone.SecretKey == "") {
		errs = append(errs, "coinone: access_token and secret_key must be set together")
	}

	// Analyzer
	if len(c.Analyzer.Pairs) == 0 {
		errs = append(errs, "analyzer: pairs must not be empty")
	}
	if c.Analyzer.Interval.Duration <= 0 {
		errs = append(errs, "analyzer: interval must be > 0")
	}
	if c.Analyzer.TradeWindow.Duration <= 0 {
		errs = append(errs, "analyzer: trade_window must be > 0")
	}
	if !validBookSizes[c.Analyzer.OrderbookSize] {
		errs = append(errs, fmt.Sprintf("analyzer: orderbook_size must be 5, 10, 15 or 16, got %d", c.Analyzer.OrderbookSize))
	}

	// Orders
	if c.Orders.Enabled && !c.Coinone.HasCredentials() {
		errs = append(errs, "orders: enabled requires coinone.access_token and coinone.secret_key")
	}
	if c.Orders.MaxSingleOrder < 0 {
		errs = append(errs, "orders: max_single_order must be >= 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if c.S3.ArchiveEnabled {
		if !c.S3.Enabled || !c.Postgres.Enabled {
			errs = append(errs, "s3: archive_enabled requires s3.enabled and postgres.enabled")
		}
		if c.S3.ArchiveRetentionDays < 1 {
			errs = append(errs, "s3: archive_retention_days must be >= 1")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be > 0")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
