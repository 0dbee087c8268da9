package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/analyzer"
	"github.com/alanyoungcy/coinonebot/internal/domain"
)

func thinMarket() *fakeMarket {
	return &fakeMarket{
		book: domain.OrderbookSnapshot{
			Bids: []domain.PriceLevel{{Price: 100, Qty: 1}},
			Asks: []domain.PriceLevel{{Price: 101, Qty: 1}},
		},
		trades: []domain.Trade{{Timestamp: 1, Price: 100, Qty: 1, IsSellerMaker: true}, {Timestamp: 2, Price: 101, Qty: 1}},
	}
}

func fixedAnalyzer() *analyzer.Analyzer {
	return analyzer.New(analyzer.WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
}

func TestAnalyzePair_RecordsEverywhere(t *testing.T) {
	cache := &memAnalysisCache{}
	store := &memAnalysisStore{}
	bus := &memBus{}
	metrics := &countingMetrics{}
	alerts := &flagRecorder{}

	svc := NewAnalysisService(thinMarket(), fixedAnalyzer(), AnalysisDeps{
		Cache: cache, Store: store, Bus: bus, Metrics: metrics, Notifier: alerts,
	}, quietLogger())

	result, err := svc.AnalyzePair(context.Background(), "btc", "")
	require.NoError(t, err)

	assert.Equal(t, "BTC/KRW", result.Symbol)
	assert.Equal(t, int64(1700000000), result.Timestamp)
	assert.True(t, result.HasFlag(domain.FlagThinBookRisk))

	assert.Contains(t, cache.latest, "BTC/KRW")
	require.Len(t, store.rows, 1)
	assert.Equal(t, 1, metrics.analyses)
	require.Len(t, alerts.results, 1)

	require.Len(t, bus.published[domain.AnalysisChannel("BTC/KRW")], 1)
	require.Len(t, bus.published[domain.ChannelFlags], 1)
	var ev domain.FlagEvent
	require.NoError(t, json.Unmarshal(bus.published[domain.ChannelFlags][0], &ev))
	assert.Equal(t, "BTC/KRW", ev.Symbol)
	assert.Contains(t, ev.Flags, domain.FlagThinBookRisk)
}

func TestAnalyzePair_FetchError(t *testing.T) {
	m := thinMarket()
	m.tradesErr = errors.New("upstream down")
	svc := NewAnalysisService(m, nil, AnalysisDeps{}, quietLogger())

	_, err := svc.AnalyzePair(context.Background(), "BTC", "KRW")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestHandleSnapshot_NoSinks(t *testing.T) {
	svc := NewAnalysisService(thinMarket(), fixedAnalyzer(), AnalysisDeps{}, quietLogger())
	assert.NotPanics(t, func() {
		svc.HandleSnapshot(context.Background(), "ETH/KRW", domain.OrderbookSnapshot{}, nil)
	})
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	store := &memAnalysisStore{rows: []domain.AnalysisResult{
		{Symbol: "BTC/KRW", Timestamp: 1},
		{Symbol: "BTC/KRW", Timestamp: 2},
	}}

	t.Run("cache hit", func(t *testing.T) {
		cache := &memAnalysisCache{latest: map[string]domain.AnalysisResult{"BTC/KRW": {Symbol: "BTC/KRW", Timestamp: 9}}}
		svc := NewAnalysisService(nil, nil, AnalysisDeps{Cache: cache, Store: store}, quietLogger())
		got, err := svc.Latest(ctx, "BTC", "KRW")
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.Timestamp)
	})

	t.Run("falls back to store", func(t *testing.T) {
		svc := NewAnalysisService(nil, nil, AnalysisDeps{Cache: &memAnalysisCache{}, Store: store}, quietLogger())
		got, err := svc.Latest(ctx, "btc", "krw")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Timestamp)
		assert.Equal(t, 1, store.lastOpts.Limit)
	})

	t.Run("not found", func(t *testing.T) {
		svc := NewAnalysisService(nil, nil, AnalysisDeps{}, quietLogger())
		_, err := svc.Latest(ctx, "XRP", "KRW")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := &memAnalysisStore{rows: []domain.AnalysisResult{
		{Symbol: "BTC/KRW", Timestamp: 1},
		{Symbol: "ETH/KRW", Timestamp: 2},
		{Symbol: "BTC/KRW", Timestamp: 3},
	}}
	svc := NewAnalysisService(nil, nil, AnalysisDeps{Store: store}, quietLogger())

	got, err := svc.History(ctx, "BTC", "", domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].Timestamp)

	_, err = NewAnalysisService(nil, nil, AnalysisDeps{}, quietLogger()).History(ctx, "BTC", "", domain.ListOpts{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
