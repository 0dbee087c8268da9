package domain

import (
	"context"
	"time"
)

// AnalysisCache keeps the latest analysis per symbol.
type AnalysisCache interface {
	SetLatest(ctx context.Context, result AnalysisResult) error
	GetLatest(ctx context.Context, symbol string) (AnalysisResult, error)
}

// RulesCache keeps resolved validation rules per market.
type RulesCache interface {
	Set(ctx context.Context, target, quote string, rules ValidationRules, ttl time.Duration) error
	Get(ctx context.Context, target, quote string) (ValidationRules, error)
}

// OrderbookCache stores live orderbook state.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (OrderbookSnapshot, error)
	GetBBO(ctx context.Context, symbol string) (bestBid, bestAsk float64, err error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Signal bus channels.
const (
	ChannelFlags          = "ch:flags"
	ChannelAnalysisPrefix = "ch:analysis:"
)

// AnalysisChannel is the pub/sub channel carrying results for one symbol.
func AnalysisChannel(symbol string) string {
	return ChannelAnalysisPrefix + symbol
}
