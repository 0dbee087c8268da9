package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/coinonebot/internal/analyzer"
	s3blob "github.com/alanyoungcy/coinonebot/internal/blob/s3"
	"github.com/alanyoungcy/coinonebot/internal/cache/redis"
	"github.com/alanyoungcy/coinonebot/internal/config"
	"github.com/alanyoungcy/coinonebot/internal/crypto"
	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/metrics"
	"github.com/alanyoungcy/coinonebot/internal/notify"
	"github.com/alanyoungcy/coinonebot/internal/platform/coinone"
	"github.com/alanyoungcy/coinonebot/internal/server/handler"
	"github.com/alanyoungcy/coinonebot/internal/service"
	"github.com/alanyoungcy/coinonebot/internal/store/postgres"
	"github.com/alanyoungcy/coinonebot/internal/validation"
)

// Dependencies bundles everything the run modes need. It is constructed by
// Wire and torn down by the returned cleanup function. Optional adapters stay
// nil when their section is disabled.
type Dependencies struct {
	// Exchange
	Public  *coinone.PublicClient
	Private *coinone.PrivateClient // nil without API credentials

	// Caches (Redis)
	AnalysisCache domain.AnalysisCache
	RulesCache    domain.RulesCache
	BookCache     domain.OrderbookCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Stores (Postgres)
	AnalysisStore domain.AnalysisStore
	AuditStore    domain.AuditStore

	// Blob storage (S3)
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	Notifier *notify.Notifier
	Metrics  *metrics.Registry

	// Services
	Rules    *validation.Resolver
	Analysis *service.AnalysisService
	Orders   *service.OrderService

	// HealthChecks probe every connected backend.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Metrics:      metrics.New(),
		HealthChecks: make(map[string]handler.HealthCheck),
	}

	// --- Coinone REST ---
	clientOpts := coinone.Options{
		BaseURL:           cfg.Coinone.RestHost,
		Timeout:           cfg.Coinone.Timeout.Duration,
		RequestsPerSecond: cfg.Coinone.RequestsPerSecond,
		Burst:             cfg.Coinone.Burst,
		BreakerFailures:   cfg.Coinone.BreakerFailures,
		BreakerTimeout:    cfg.Coinone.BreakerTimeout.Duration,
		Observer:          deps.Metrics,
	}
	deps.Public = coinone.NewPublicClient(clientOpts)
	if cfg.Coinone.HasCredentials() {
		deps.Private = coinone.NewPrivateClient(clientOpts, &crypto.PayloadAuth{
			AccessToken: cfg.Coinone.AccessToken,
			Secret:      cfg.Coinone.SecretKey,
		})
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.AnalysisStore = postgres.NewAnalysisStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.AnalysisCache = redis.NewAnalysisCache(redisClient, cfg.Analyzer.CacheTTL.Duration)
		deps.RulesCache = redis.NewRulesCache(redisClient)
		deps.BookCache = redis.NewOrderbookCache(redisClient, cfg.Analyzer.CacheTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		writer := s3blob.NewWriter(s3Client)
		deps.BlobWriter = writer
		deps.HealthChecks["s3"] = s3Client.Health

		// The archiver reads from and prunes the analysis table.
		if deps.AnalysisStore != nil {
			deps.Archiver = s3blob.NewArchiver(writer, deps.AnalysisStore, s3blob.ArchiverOptions{
				Prune:  cfg.S3.ArchivePrune,
				Audit:  deps.AuditStore,
				Logger: logger,
			})
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Rules = validation.NewResolver(deps.Public, deps.RulesCache, cfg.Orders.RulesCacheTTL.Duration, logger)

	an := analyzer.New(analyzer.WithBurst(cfg.Analyzer.BurstWindow, cfg.Analyzer.BurstThreshold))
	deps.Analysis = service.NewAnalysisService(deps.Public, an, service.AnalysisDeps{
		Cache:         deps.AnalysisCache,
		Store:         deps.AnalysisStore,
		Bus:           deps.SignalBus,
		Metrics:       deps.Metrics,
		Notifier:      deps.Notifier,
		OrderbookSize: cfg.Analyzer.OrderbookSize,
	}, logger)

	orderDeps := service.OrderDeps{
		Audit:    deps.AuditStore,
		Metrics:  deps.Metrics,
		Notifier: deps.Notifier,
	}
	if deps.Private != nil {
		orderDeps.Trader = deps.Private
	}
	deps.Orders = service.NewOrderService(deps.Rules, deps.Public, orderDeps, service.OrderConfig{
		Enabled:            cfg.Orders.Enabled,
		MaxSingleOrder:     cfg.Orders.MaxSingleOrder,
		SpreadThresholdPct: cfg.Orders.SpreadThresholdPct,
		MaxSlippagePct:     cfg.Orders.MaxSlippagePct,
		OrderbookSize:      cfg.Analyzer.OrderbookSize,
	}, logger)

	return deps, cleanup, nil
}
