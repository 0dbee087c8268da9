package analyzer

import (
	"math"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const (
	// DefaultDepth is the number of levels per side used by WOBI and slope.
	DefaultDepth = 10
	// DefaultDecay is the per-level weight decay used by WOBI.
	DefaultDecay = 0.8
)

// SpreadInfo is the top-of-book summary.
type SpreadInfo struct {
	BestBid   float64 `json:"bestBid"`
	BestAsk   float64 `json:"bestAsk"`
	Spread    float64 `json:"spread"`
	SpreadPct float64 `json:"spreadPct"`
	Mid       float64 `json:"mid"`
}

func top(levels []domain.PriceLevel, depth int) []domain.PriceLevel {
	if depth < 0 {
		depth = 0
	}
	if depth < len(levels) {
		return levels[:depth]
	}
	return levels
}

func sumQty(levels []domain.PriceLevel) float64 {
	var s float64
	for _, l := range levels {
		s += l.Qty
	}
	return s
}

// OBI returns the order-book imbalance over the first depth levels of each
// side, in [-1, 1]. An empty book yields 0.
func OBI(bids, asks []domain.PriceLevel, depth int) float64 {
	bidSum := sumQty(top(bids, depth))
	askSum := sumQty(top(asks, depth))
	denom := bidSum + askSum
	if denom == 0 {
		return 0
	}
	return (bidSum - askSum) / denom
}

// WOBI is OBI with level i weighted by decay^i.
func WOBI(bids, asks []domain.PriceLevel, depth int, decay float64) float64 {
	weighted := func(levels []domain.PriceLevel) float64 {
		var s float64
		for i, l := range top(levels, depth) {
			s += math.Pow(decay, float64(i)) * l.Qty
		}
		return s
	}
	bidW := weighted(bids)
	askW := weighted(asks)
	denom := bidW + askW
	if denom == 0 {
		return 0
	}
	return (bidW - askW) / denom
}

// Spread summarizes the top of book. A missing side prices at 0.
func Spread(bids, asks []domain.PriceLevel) SpreadInfo {
	var info SpreadInfo
	if len(bids) > 0 {
		info.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		info.BestAsk = asks[0].Price
	}
	info.Spread = info.BestAsk - info.BestBid
	info.Mid = (info.BestAsk + info.BestBid) / 2
	if math.IsNaN(info.Mid) {
		info.Mid = 0
	}
	if info.Mid > 0 {
		info.SpreadPct = info.Spread / info.Mid
	}
	return info
}

// LiquiditySlope fits quantity against distance from mid over the top depth
// levels of both sides and returns the least-squares slope. A level sitting
// exactly at mid uses its position in the combined list (1-based) as its
// distance.
func LiquiditySlope(book domain.OrderbookSnapshot, depth int) float64 {
	mid := Spread(book.Bids, book.Asks).Mid
	bids := top(book.Bids, depth)
	asks := top(book.Asks, depth)
	levels := make([]domain.PriceLevel, 0, len(bids)+len(asks))
	levels = append(levels, bids...)
	levels = append(levels, asks...)
	if len(levels) < 2 || mid == 0 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for idx, lvl := range levels {
		x := math.Abs(lvl.Price - mid)
		if x == 0 || math.IsNaN(x) {
			x = float64(idx + 1)
		}
		y := lvl.Qty
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	n := float64(len(levels))
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Depth sums quantity over the first depth levels of both sides.
func Depth(book domain.OrderbookSnapshot, depth int) float64 {
	return sumQty(top(book.Bids, depth)) + sumQty(top(book.Asks, depth))
}
