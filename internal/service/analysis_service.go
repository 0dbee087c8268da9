// Package service composes the exchange clients, the analyzer and the
// storage adapters into the operations exposed by the CLI and the API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/coinonebot/internal/analyzer"
	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// AnalysisObserver records analysis metrics.
type AnalysisObserver interface {
	ObserveAnalysis(result domain.AnalysisResult)
}

// FlagNotifier alerts on raised flags.
type FlagNotifier interface {
	NotifyFlags(ctx context.Context, result domain.AnalysisResult) error
}

// AnalysisDeps are the optional sinks of an AnalysisService. Nil fields are
// skipped.
type AnalysisDeps struct {
	Cache         domain.AnalysisCache
	Store         domain.AnalysisStore
	Bus           domain.SignalBus
	Metrics       AnalysisObserver
	Notifier      FlagNotifier
	OrderbookSize int
}

// AnalysisService fetches market data, runs the snapshot analyzer and fans
// results out to cache, history, pub/sub, metrics and alerts.
type AnalysisService struct {
	market   domain.MarketDataClient
	analyzer *analyzer.Analyzer
	deps     AnalysisDeps
	logger   *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(market domain.MarketDataClient, an *analyzer.Analyzer, deps AnalysisDeps, logger *slog.Logger) *AnalysisService {
	if an == nil {
		an = analyzer.New()
	}
	return &AnalysisService{
		market:   market,
		analyzer: an,
		deps:     deps,
		logger:   logger.With(slog.String("component", "analysis_service")),
	}
}

func normalizePair(target, quote string) (string, string) {
	if quote == "" {
		quote = domain.DefaultQuote
	}
	return strings.ToUpper(target), strings.ToUpper(quote)
}

// AnalyzePair fetches the book and recent trades concurrently, analyzes them
// and records the result.
func (s *AnalysisService) AnalyzePair(ctx context.Context, target, quote string) (domain.AnalysisResult, error) {
	target, quote = normalizePair(target, quote)

	var (
		book   domain.OrderbookSnapshot
		trades []domain.Trade
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		book, err = s.market.Orderbook(gctx, target, quote, s.deps.OrderbookSize)
		return err
	})
	g.Go(func() error {
		var err error
		trades, err = s.market.RecentTrades(gctx, target, quote)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("service: analyze %s/%s: %w", target, quote, err)
	}

	result := s.analyzer.Analyze(domain.Symbol(target, quote), book, trades)
	s.Record(ctx, result)
	return result, nil
}

// HandleSnapshot analyzes state pushed by the live feed and records it.
func (s *AnalysisService) HandleSnapshot(ctx context.Context, symbol string, book domain.OrderbookSnapshot, trades []domain.Trade) {
	s.Record(ctx, s.analyzer.Analyze(symbol, book, trades))
}

// Record fans result out to every configured sink. Sink failures are logged
// and do not stop the remaining sinks.
func (s *AnalysisService) Record(ctx context.Context, result domain.AnalysisResult) {
	log := s.logger.With(slog.String("symbol", result.Symbol))

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveAnalysis(result)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatest(ctx, result); err != nil {
			log.WarnContext(ctx, "cache latest analysis failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.Insert(ctx, result); err != nil {
			log.WarnContext(ctx, "persist analysis failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Bus != nil {
		s.publish(ctx, log, domain.AnalysisChannel(result.Symbol), result)
		if len(result.Flags) > 0 {
			s.publish(ctx, log, domain.ChannelFlags, domain.FlagEvent{
				Symbol:    result.Symbol,
				Timestamp: result.Timestamp,
				Flags:     result.Flags,
				Scores:    result.Scores,
			})
		}
	}

	if len(result.Flags) > 0 {
		log.InfoContext(ctx, "analysis flags raised",
			slog.Any("flags", result.Flags),
			slog.Float64("market_pressure", result.Scores.MarketPressure),
			slog.Float64("liquidity_score", result.Scores.LiquidityScore),
		)
		if s.deps.Notifier != nil {
			if err := s.deps.Notifier.NotifyFlags(ctx, result); err != nil {
				log.WarnContext(ctx, "flag notification failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *AnalysisService) publish(ctx context.Context, log *slog.Logger, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.ErrorContext(ctx, "marshal bus payload failed", slog.String("error", err.Error()))
		return
	}
	if err := s.deps.Bus.Publish(ctx, channel, payload); err != nil {
		log.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// Latest returns the most recent result for the pair from the cache, falling
// back to the history store.
func (s *AnalysisService) Latest(ctx context.Context, target, quote string) (domain.AnalysisResult, error) {
	target, quote = normalizePair(target, quote)
	symbol := domain.Symbol(target, quote)

	if s.deps.Cache != nil {
		result, err := s.deps.Cache.GetLatest(ctx, symbol)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.deps.Store != nil {
		results, err := s.deps.Store.ListBySymbol(ctx, symbol, domain.ListOpts{Limit: 1})
		if err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("service: latest %s: %w", symbol, err)
		}
		if len(results) > 0 {
			return results[0], nil
		}
	}
	return domain.AnalysisResult{}, fmt.Errorf("service: latest %s: %w", symbol, domain.ErrNotFound)
}

// History lists stored results for the pair, newest first.
func (s *AnalysisService) History(ctx context.Context, target, quote string, opts domain.ListOpts) ([]domain.AnalysisResult, error) {
	target, quote = normalizePair(target, quote)
	symbol := domain.Symbol(target, quote)
	if s.deps.Store == nil {
		return nil, fmt.Errorf("service: history %s: store not configured: %w", symbol, domain.ErrNotFound)
	}
	results, err := s.deps.Store.ListBySymbol(ctx, symbol, opts)
	if err != nil {
		return nil, fmt.Errorf("service: history %s: %w", symbol, err)
	}
	return results, nil
}
