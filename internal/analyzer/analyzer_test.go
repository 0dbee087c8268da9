package analyzer

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

func lv(price, qty float64) domain.PriceLevel { return domain.PriceLevel{Price: price, Qty: qty} }

func symmetricBook() domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		Target: "BTC",
		Quote:  "KRW",
		Bids:   []domain.PriceLevel{lv(99, 1), lv(98, 2)},
		Asks:   []domain.PriceLevel{lv(101, 1), lv(102, 2)},
	}
}

func sampleTrades() []domain.Trade {
	return []domain.Trade{
		{Timestamp: 1, Price: 100, Qty: 1, IsSellerMaker: false},
		{Timestamp: 2, Price: 110, Qty: 3, IsSellerMaker: true},
	}
}

func TestOBI(t *testing.T) {
	bids := []domain.PriceLevel{lv(10, 1), lv(9, 2), lv(8, 3)}
	asks := []domain.PriceLevel{lv(11, 2), lv(12, 1)}

	assert.InDelta(t, -1.0/3, OBI(bids, asks, 1), 1e-12)
	assert.InDelta(t, 1.0/3, OBI(bids, asks, 5), 1e-12)
	assert.Equal(t, 0.0, OBI(nil, nil, 10))
	assert.Equal(t, 1.0, OBI(bids, nil, 10))
	assert.Equal(t, -1.0, OBI(nil, asks, 10))
}

func TestWOBI(t *testing.T) {
	bids := []domain.PriceLevel{lv(10, 1), lv(9, 2), lv(8, 3)}
	asks := []domain.PriceLevel{lv(11, 2), lv(12, 1)}

	want := (4.52 - 2.8) / 7.32
	assert.InDelta(t, want, WOBI(bids, asks, DefaultDepth, DefaultDecay), 1e-12)
	assert.Equal(t, 0.0, WOBI(nil, nil, DefaultDepth, DefaultDecay))
}

func TestSpread(t *testing.T) {
	t.Run("both sides", func(t *testing.T) {
		s := Spread([]domain.PriceLevel{lv(100, 1)}, []domain.PriceLevel{lv(102, 1)})
		assert.Equal(t, 100.0, s.BestBid)
		assert.Equal(t, 102.0, s.BestAsk)
		assert.Equal(t, 2.0, s.Spread)
		assert.Equal(t, 101.0, s.Mid)
		assert.InDelta(t, 2.0/101, s.SpreadPct, 1e-12)
	})

	t.Run("asks only", func(t *testing.T) {
		s := Spread(nil, []domain.PriceLevel{lv(102, 1)})
		assert.Equal(t, 0.0, s.BestBid)
		assert.Equal(t, 102.0, s.Spread)
		assert.Equal(t, 51.0, s.Mid)
		assert.Equal(t, 2.0, s.SpreadPct)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, SpreadInfo{}, Spread(nil, nil))
	})
}

func TestLiquiditySlope(t *testing.T) {
	assert.InDelta(t, 1.0, LiquiditySlope(symmetricBook(), DefaultDepth), 1e-12)

	t.Run("levels at mid use position", func(t *testing.T) {
		book := domain.OrderbookSnapshot{
			Bids: []domain.PriceLevel{lv(100, 1)},
			Asks: []domain.PriceLevel{lv(100, 3)},
		}
		assert.InDelta(t, 2.0, LiquiditySlope(book, DefaultDepth), 1e-12)
	})

	t.Run("too few levels", func(t *testing.T) {
		book := domain.OrderbookSnapshot{Bids: []domain.PriceLevel{lv(100, 1)}}
		assert.Equal(t, 0.0, LiquiditySlope(book, DefaultDepth))
	})

	t.Run("degenerate x", func(t *testing.T) {
		book := domain.OrderbookSnapshot{
			Bids: []domain.PriceLevel{lv(99, 1)},
			Asks: []domain.PriceLevel{lv(101, 5)},
		}
		assert.Equal(t, 0.0, LiquiditySlope(book, DefaultDepth))
	})
}

func TestTradeFlow(t *testing.T) {
	f := ClassifyTradeFlow(sampleTrades())
	assert.Equal(t, 1.0, f.BuyVolume)
	assert.Equal(t, 3.0, f.SellVolume)
	assert.Equal(t, -0.5, f.VolumeImbalance)

	assert.Equal(t, Flow{}, ClassifyTradeFlow(nil))
}

func TestVWAPAndDrift(t *testing.T) {
	assert.InDelta(t, 107.5, VWAP(sampleTrades()), 1e-9)
	assert.InDelta(t, 2.5, VWAPDrift(sampleTrades()), 1e-9)
	assert.Equal(t, 0.0, VWAP(nil))
	assert.Equal(t, 0.0, VWAPDrift(nil))
}

func TestDetectTradeBurst(t *testing.T) {
	trades := make([]domain.Trade, 150)
	b := DetectTradeBurst(trades, 30, 5)
	assert.Equal(t, 5.0, b.TradesPerSec)
	assert.True(t, b.Flag)

	b = DetectTradeBurst(trades[:149], 30, 5)
	assert.False(t, b.Flag)

	b = DetectTradeBurst(trades[:10], 1, 5)
	assert.Equal(t, 10.0, b.TradesPerSec)
	assert.True(t, b.Flag)
}

func TestScores(t *testing.T) {
	assert.InDelta(t, 0.7, MarketPressureIndex(1, 1, 0, 0), 1e-12)
	assert.InDelta(t, 0.6, MarketPressureIndex(1, 1, 1, 1), 1e-12)
	assert.Equal(t, -1.0, MarketPressureIndex(-1, -1, 2, 0))

	assert.Equal(t, 0.0, LiquidityScore(0, 0, 0))
	assert.Equal(t, 1.0, LiquidityScore(1000, 1000, 0))
	assert.Equal(t, -1.0, LiquidityScore(0, -1000, 1))
}

func TestFlags(t *testing.T) {
	tests := []struct {
		name      string
		pressure  float64
		liquidity float64
		want      []string
	}{
		{"buy wave", 0.5, 0.5, []string{domain.FlagAggressiveBuyWave}},
		{"sell wave thin book", -0.5, 0.1, []string{domain.FlagAggressiveSellWave, domain.FlagThinBookRisk}},
		{"quiet", 0, 0.5, []string{}},
		{"thresholds are exclusive", 0.3, 0.2, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flags(tt.pressure, tt.liquidity))
		})
	}
}

func TestAnalyze(t *testing.T) {
	clock := func() time.Time { return time.Unix(1700000000, 999_000_000) }
	a := New(WithClock(clock))

	res := a.Analyze("BTC/KRW", symmetricBook(), sampleTrades())

	assert.Equal(t, int64(1700000000), res.Timestamp)
	assert.Equal(t, "BTC/KRW", res.Symbol)
	assert.Equal(t, 0.0, res.Orderbook.OBI.Top1)
	assert.Equal(t, 0.0, res.Orderbook.OBI.Top10)
	assert.Equal(t, 0.0, res.Orderbook.WOBI)
	assert.Equal(t, 2.0, res.Orderbook.Spread.Value)
	assert.InDelta(t, 0.02, res.Orderbook.Spread.Pct, 1e-12)
	assert.InDelta(t, 1.0, res.Orderbook.LiquiditySlope, 1e-12)
	assert.Equal(t, -0.5, res.Trades.VolumeImbalance)
	assert.InDelta(t, 107.5, res.Trades.VWAP, 1e-9)
	assert.InDelta(t, 2.5, res.Trades.VWAPDrift, 1e-9)

	wantPressure := 0.3*-0.5 - 0.2*0.02 + 0.1*0.025
	assert.InDelta(t, wantPressure, res.Scores.MarketPressure, 1e-9)
	wantLiquidity := math.Tanh(0.6) + math.Tanh(1) - math.Tanh(2)
	assert.InDelta(t, wantLiquidity, res.Scores.LiquidityScore, 1e-9)
	assert.Empty(t, res.Flags)

	require.NotNil(t, res.Orderbook.Walls)
	require.NotNil(t, res.Orderbook.Voids)
	require.NotNil(t, res.Trades.Whales)
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	res := AnalyzeSnapshot("ETH/KRW", domain.OrderbookSnapshot{}, nil)

	assert.Equal(t, 0.0, res.Scores.MarketPressure)
	assert.Equal(t, 0.0, res.Scores.LiquidityScore)
	assert.Equal(t, []string{domain.FlagThinBookRisk}, res.Flags)
	assert.False(t, res.Trades.Burst.Flag)
}

func TestAnalyzeJSONShape(t *testing.T) {
	a := New(WithClock(func() time.Time { return time.Unix(10, 0) }))
	b, err := json.Marshal(a.Analyze("BTC/KRW", symmetricBook(), nil))
	require.NoError(t, err)

	out := string(b)
	for _, key := range []string{
		`"timestamp":10`, `"symbol":"BTC/KRW"`, `"obi":{"top1":`, `"liquiditySlope":`,
		`"walls":[]`, `"voids":[]`, `"whales":[]`, `"burst":{"tradesPerSec":0,"flag":false}`,
		`"scores":{"marketPressure":`, `"flags":[]`,
	} {
		assert.True(t, strings.Contains(out, key), "missing %s in %s", key, out)
	}
}

func TestWithBurst(t *testing.T) {
	a := New(WithBurst(10, 1))
	res := a.Analyze("BTC/KRW", symmetricBook(), make([]domain.Trade, 10))
	assert.Equal(t, 1.0, res.Trades.Burst.TradesPerSec)
	assert.True(t, res.Trades.Burst.Flag)
}

func endToEndBook() domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		Target: "BTC",
		Quote:  "KRW",
		Bids:   []domain.PriceLevel{lv(100, 3), lv(99, 2), lv(98, 1)},
		Asks:   []domain.PriceLevel{lv(101, 1), lv(102, 1), lv(103, 1)},
	}
}

func TestKnownValues(t *testing.T) {
	vwapTrades := []domain.Trade{
		{Price: 100, Qty: 1},
		{Price: 101, Qty: 2},
		{Price: 102, Qty: 1},
	}
	book := endToEndBook()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"vwap", VWAP(vwapTrades), 101},
		{"vwap drift", VWAPDrift(vwapTrades), 1},
		{"obi top1", OBI(book.Bids, book.Asks, 1), 0.5},
		{"obi top10", OBI(book.Bids, book.Asks, 10), 1.0 / 3},
		{"pressure clamps high", MarketPressureIndex(10, 10, 10, 10), 1},
		{"pressure clamps low", MarketPressureIndex(-10, -10, -10, -10), -1},
		{"pressure clamps far high", MarketPressureIndex(1e9, 1e9, 1e9, 1e9), 1},
		{"pressure clamps far low", MarketPressureIndex(-1e9, -1e9, -1e9, -1e9), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-12)
		})
	}

	t.Run("analyze end to end", func(t *testing.T) {
		res := New(WithClock(func() time.Time { return time.Unix(1, 0) })).Analyze("BTC/KRW", book, vwapTrades)
		assert.InDelta(t, 0.5, res.Orderbook.OBI.Top1, 1e-12)
		assert.InDelta(t, 101.0, res.Trades.VWAP, 1e-12)
		assert.InDelta(t, 1.0, res.Trades.VWAPDrift, 1e-12)
	})
}

func TestWOBIAtLeastOBIForTopHeavyBooks(t *testing.T) {
	tests := []struct {
		name string
		bids []domain.PriceLevel
		asks []domain.PriceLevel
	}{
		{"bid heavy top", []domain.PriceLevel{lv(100, 5), lv(99, 1)}, []domain.PriceLevel{lv(101, 1), lv(102, 1)}},
		{"ask heavy top", []domain.PriceLevel{lv(100, 1), lv(99, 1)}, []domain.PriceLevel{lv(101, 5), lv(102, 1)}},
		{"declining bids", endToEndBook().Bids, endToEndBook().Asks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obi := OBI(tt.bids, tt.asks, DefaultDepth)
			wobi := WOBI(tt.bids, tt.asks, DefaultDepth, DefaultDecay)
			assert.GreaterOrEqual(t, math.Abs(wobi), math.Abs(obi))
		})
	}
}

func randomLevels(r *rand.Rand, n int, start, step float64) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, n)
	for i := range levels {
		levels[i] = lv(start+step*float64(i), r.Float64()*100)
	}
	return levels
}

func TestGeneratedBooksAndTrades(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 200; i++ {
		bids := randomLevels(r, 1+r.IntN(15), 1000, -1)
		asks := randomLevels(r, r.IntN(15), 1001, 1)
		for _, depth := range []int{1, 5, 10} {
			obi := OBI(bids, asks, depth)
			require.GreaterOrEqual(t, obi, -1.0)
			require.LessOrEqual(t, obi, 1.0)
		}

		trades := make([]domain.Trade, r.IntN(30))
		var total float64
		for j := range trades {
			trades[j] = domain.Trade{Price: 1000, Qty: r.Float64() * 5, IsSellerMaker: r.IntN(2) == 0}
			total += trades[j].Qty
		}
		f := ClassifyTradeFlow(trades)
		require.InDelta(t, total, f.BuyVolume+f.SellVolume, 1e-9)
		require.GreaterOrEqual(t, f.VolumeImbalance, -1.0)
		require.LessOrEqual(t, f.VolumeImbalance, 1.0)
	}
}

func TestBalancedFlowHasNoImbalance(t *testing.T) {
	f := ClassifyTradeFlow([]domain.Trade{
		{Price: 100, Qty: 2, IsSellerMaker: false},
		{Price: 101, Qty: 1.5, IsSellerMaker: true},
		{Price: 102, Qty: 0.5, IsSellerMaker: true},
	})
	assert.Equal(t, 2.0, f.BuyVolume)
	assert.Equal(t, 2.0, f.SellVolume)
	assert.Equal(t, 0.0, f.VolumeImbalance)
}
