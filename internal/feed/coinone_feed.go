// Package feed turns the exchange stream into periodic per-pair snapshots of
// the latest orderbook and a rolling window of recent trades.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/platform/coinone"
)

const (
	DefaultTradeWindow = 30 * time.Second
	DefaultInterval    = 5 * time.Second
)

// Stream is the part of coinone.WSClient the feed drives.
type Stream interface {
	OnOrderbook(h coinone.OrderbookHandler)
	OnTrade(h coinone.TradeHandler)
	Subscribe(channel coinone.Channel, pairs ...string) error
	Run(ctx context.Context) error
}

// EmitFunc receives one pair's current state. trades is oldest first and owned
// by the callee.
type EmitFunc func(ctx context.Context, symbol string, book domain.OrderbookSnapshot, trades []domain.Trade)

// Options configures a CoinoneFeed.
type Options struct {
	// Pairs are "TARGET/QUOTE" symbols; a bare target means KRW.
	Pairs       []string
	TradeWindow time.Duration
	Interval    time.Duration
	// Cache, when set, mirrors every emitted book.
	Cache  domain.OrderbookCache
	Logger *slog.Logger
}

// CoinoneFeed keeps the latest book and recent trades for each configured
// pair and emits them on a fixed interval.
type CoinoneFeed struct {
	stream   Stream
	emit     EmitFunc
	cache    domain.OrderbookCache
	window   time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	symbols []string
	targets []string

	mu     sync.Mutex
	books  map[string]domain.OrderbookSnapshot
	trades map[string][]domain.Trade
}

// New wires a feed onto stream. Handlers are registered immediately so no
// message is missed once the stream runs.
func New(stream Stream, emit EmitFunc, opts Options) *CoinoneFeed {
	if opts.TradeWindow <= 0 {
		opts.TradeWindow = DefaultTradeWindow
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &CoinoneFeed{
		stream:   stream,
		emit:     emit,
		cache:    opts.Cache,
		window:   opts.TradeWindow,
		interval: opts.Interval,
		logger:   logger.With(slog.String("component", "coinone_feed")),
		now:      time.Now,
		books:    make(map[string]domain.OrderbookSnapshot),
		trades:   make(map[string][]domain.Trade),
	}

	seen := make(map[string]bool)
	for _, p := range opts.Pairs {
		target, quote := domain.ParseSymbol(p)
		sym := domain.Symbol(target, quote)
		if target == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		f.symbols = append(f.symbols, sym)
		f.targets = append(f.targets, target)
		f.trades[sym] = nil
	}

	stream.OnOrderbook(f.handleBook)
	stream.OnTrade(f.handleTrade)
	return f
}

// Symbols returns the tracked pairs.
func (f *CoinoneFeed) Symbols() []string {
	return append([]string(nil), f.symbols...)
}

// Run subscribes, runs the stream and emits until ctx is cancelled.
func (f *CoinoneFeed) Run(ctx context.Context) error {
	if err := f.stream.Subscribe(coinone.ChannelOrderbook, f.targets...); err != nil {
		return err
	}
	if err := f.stream.Subscribe(coinone.ChannelTrades, f.targets...); err != nil {
		return err
	}

	f.logger.InfoContext(ctx, "feed started",
		slog.Any("pairs", f.symbols),
		slog.Duration("interval", f.interval),
		slog.Duration("trade_window", f.window),
	)
	defer f.logger.Info("feed stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.stream.Run(ctx) })
	g.Go(func() error {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				f.Flush(ctx)
			}
		}
	})
	return g.Wait()
}

// Flush emits the current state of every pair that has a book.
func (f *CoinoneFeed) Flush(ctx context.Context) {
	for _, sym := range f.symbols {
		book, trades, ok := f.Snapshot(sym)
		if !ok {
			continue
		}
		if f.cache != nil {
			if err := f.cache.SetSnapshot(ctx, book); err != nil {
				f.logger.WarnContext(ctx, "orderbook cache write failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
			}
		}
		if f.emit != nil {
			f.emit(ctx, sym, book, trades)
		}
	}
}

// Snapshot returns the latest book and in-window trades for symbol. ok is
// false until a book has arrived.
func (f *CoinoneFeed) Snapshot(symbol string) (domain.OrderbookSnapshot, []domain.Trade, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	book, ok := f.books[symbol]
	if !ok {
		return domain.OrderbookSnapshot{}, nil, false
	}
	f.pruneLocked(symbol)
	trades := append([]domain.Trade{}, f.trades[symbol]...)
	return book, trades, true
}

func (f *CoinoneFeed) handleBook(snap domain.OrderbookSnapshot) {
	sym := snap.Symbol()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, tracked := f.trades[sym]; !tracked {
		return
	}
	f.books[sym] = snap
}

func (f *CoinoneFeed) handleTrade(ev coinone.TradeEvent) {
	sym := ev.Symbol()
	f.mu.Lock()
	defer f.mu.Unlock()
	trades, tracked := f.trades[sym]
	if !tracked {
		return
	}
	f.trades[sym] = append(trades, ev.Trade)
	f.pruneLocked(sym)
}

// pruneLocked drops trades older than the window. Trades arrive in time
// order so the cut point is a prefix.
func (f *CoinoneFeed) pruneLocked(symbol string) {
	cutoff := f.now().Add(-f.window).UnixMilli()
	trades := f.trades[symbol]
	i := 0
	for i < len(trades) && trades[i].Timestamp < cutoff {
		i++
	}
	if i > 0 {
		f.trades[symbol] = append(trades[:0:0], trades[i:]...)
	}
}
