// Package analyzer computes order-book and trade-flow microstructure metrics
// and folds them into a single AnalysisResult per snapshot.
package analyzer

import (
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// Analyzer produces AnalysisResults. It holds no per-snapshot state and is
// safe for concurrent use.
type Analyzer struct {
	now            func() time.Time
	burstWindowSec float64
	burstThreshold float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithBurst sets the trade-burst window (seconds) and rate threshold.
// Non-positive values keep the defaults.
func WithBurst(windowSec, threshold float64) Option {
	return func(a *Analyzer) {
		if windowSec > 0 {
			a.burstWindowSec = windowSec
		}
		if threshold > 0 {
			a.burstThreshold = threshold
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		now:            time.Now,
		burstWindowSec: DefaultBurstWindowSec,
		burstThreshold: DefaultBurstThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// AnalyzeSnapshot analyzes with the default analyzer.
func AnalyzeSnapshot(symbol string, book domain.OrderbookSnapshot, trades []domain.Trade) domain.AnalysisResult {
	return defaultAnalyzer.Analyze(symbol, book, trades)
}

// Analyze computes every metric for one book and trade window.
func (a *Analyzer) Analyze(symbol string, book domain.OrderbookSnapshot, trades []domain.Trade) domain.AnalysisResult {
	spread := Spread(book.Bids, book.Asks)
	wobi := WOBI(book.Bids, book.Asks, DefaultDepth, DefaultDecay)
	slope := LiquiditySlope(book, DefaultDepth)

	flow := ClassifyTradeFlow(trades)
	vwap := VWAP(trades)
	drift := VWAPDrift(trades)
	var driftPct float64
	if spread.Mid > 0 {
		driftPct = drift / spread.Mid
	}
	burst := DetectTradeBurst(trades, a.burstWindowSec, a.burstThreshold)

	depth10 := Depth(book, DefaultDepth)
	pressure := MarketPressureIndex(wobi, flow.VolumeImbalance, spread.SpreadPct, driftPct)
	liquidity := LiquidityScore(depth10, slope, spread.SpreadPct)

	return domain.AnalysisResult{
		Timestamp: a.now().Unix(),
		Symbol:    symbol,
		Orderbook: domain.OrderbookAnalysis{
			OBI: domain.OBILevels{
				Top1:  OBI(book.Bids, book.Asks, 1),
				Top5:  OBI(book.Bids, book.Asks, 5),
				Top10: OBI(book.Bids, book.Asks, 10),
			},
			WOBI:           wobi,
			Spread:         domain.SpreadSummary{Value: spread.Spread, Pct: spread.SpreadPct},
			LiquiditySlope: slope,
			Walls:          []domain.Wall{},
			Voids:          []domain.Void{},
		},
		Trades: domain.TradeAnalysis{
			BuyVolume:       flow.BuyVolume,
			SellVolume:      flow.SellVolume,
			VolumeImbalance: flow.VolumeImbalance,
			VWAP:            vwap,
			VWAPDrift:       drift,
			Burst:           burst,
			Whales:          []domain.Whale{},
		},
		Scores: domain.Scores{
			MarketPressure: pressure,
			LiquidityScore: liquidity,
		},
		Flags: Flags(pressure, liquidity),
	}
}
