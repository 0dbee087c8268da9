package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/feed"
	"github.com/alanyoungcy/coinonebot/internal/pipeline"
	"github.com/alanyoungcy/coinonebot/internal/platform/coinone"
	"github.com/alanyoungcy/coinonebot/internal/server"
	"github.com/alanyoungcy/coinonebot/internal/server/handler"
	"github.com/alanyoungcy/coinonebot/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// AnalyzeMode runs one analysis pass over the configured pairs and writes
// the results as a JSON array. Pairs are fetched concurrently; output keeps
// the configured order.
func (a *App) AnalyzeMode(ctx context.Context, deps *Dependencies) error {
	results, err := a.analyzeAll(ctx, deps, a.cfg.Analyzer.Pairs)
	if err != nil {
		return err
	}
	return a.writeJSON(results)
}

func (a *App) analyzeAll(ctx context.Context, deps *Dependencies, pairs []string) ([]domain.AnalysisResult, error) {
	results := make([]domain.AnalysisResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, pair := range pairs {
		g.Go(func() error {
			target, quote := domain.ParseSymbol(pair)
			res, err := deps.Analysis.AnalyzePair(gctx, target, quote)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", pair, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ServerMode serves the HTTP API only. Analyses are computed on request.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// MonitorMode streams the configured pairs, analyzes them on every feed
// interval and serves the HTTP API plus the WebSocket relay.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode", slog.Any("pairs", a.cfg.Analyzer.Pairs))

	g, ctx := errgroup.WithContext(ctx)
	a.startMonitor(ctx, g, deps)
	return g.Wait()
}

// FullMode is MonitorMode plus periodic archival of old analyses to S3.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startMonitor(ctx, g, deps)

	if a.cfg.S3.ArchiveEnabled && deps.Archiver != nil {
		archiver := pipeline.NewArchiver(deps.Archiver, deps.LockManager, a.cfg.S3.ArchiveRetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunEvery(ctx, a.cfg.S3.ArchiveInterval.Duration)
		})
	} else {
		a.logger.WarnContext(ctx, "archival disabled, running as monitor")
	}
	return g.Wait()
}

// startMonitor launches the live feed, the WebSocket hub (when a signal bus
// is available) and the HTTP server on g.
func (a *App) startMonitor(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	stream := coinone.NewWSClient(coinone.WSOptions{
		URL:               a.cfg.Coinone.WsHost,
		ReconnectInterval: a.cfg.Coinone.ReconnectInterval.Duration,
		Logger:            a.logger,
	})
	stream.OnStateChange(func(from, to coinone.State) {
		a.logger.Info("stream state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	f := feed.New(stream, deps.Analysis.HandleSnapshot, feed.Options{
		Pairs:       a.cfg.Analyzer.Pairs,
		TradeWindow: a.cfg.Analyzer.TradeWindow.Duration,
		Interval:    a.cfg.Analyzer.Interval.Duration,
		Cache:       deps.BookCache,
		Logger:      a.logger,
	})
	g.Go(func() error {
		defer stream.Close()
		return f.Run(ctx)
	})

	var hub *ws.Hub
	if deps.SignalBus != nil {
		channels := []string{domain.ChannelFlags}
		for _, sym := range f.Symbols() {
			channels = append(channels, domain.AnalysisChannel(sym))
		}
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Channels:  channels,
			Mode:      a.cfg.Mode,
			StartedAt: a.startedAt,
			Observer:  deps.Metrics,
		})
		g.Go(func() error { return hub.Run(ctx) })
	} else {
		a.logger.WarnContext(ctx, "redis disabled, websocket relay not started")
	}

	a.startHTTPServer(ctx, g, deps, hub)
}

// startHTTPServer builds the API handlers and serves them on g until ctx is
// cancelled. hub may be nil.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:   handler.NewStatusHandler(a.cfg.Mode, a.cfg.Analyzer.Pairs, a.startedAt),
		Markets:  handler.NewMarketHandler(deps.Public, a.cfg.Analyzer.OrderbookSize, a.logger),
		Analysis: handler.NewAnalysisHandler(deps.Analysis, a.logger),
		Rules:    handler.NewRulesHandler(deps.Rules, a.logger),
		Orders:   handler.NewOrderHandler(deps.Orders, a.logger),
		Metrics:  deps.Metrics.Handler(),
	}

	opts := server.Options{Hub: hub, RateLimiter: deps.RateLimiter, Observer: deps.Metrics}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, opts, a.logger)

	g.Go(func() error {
		return srv.Run(ctx, shutdownTimeout)
	})
}
