// Package trading holds order-planning helpers: top-of-book summary,
// slippage estimation, order splitting and balance risk checks.
package trading

import (
	"math"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// Risk check reasons.
const (
	ReasonInsufficientBalance = "INSUFFICIENT_BALANCE"
	ReasonBelowMinOrder       = "BELOW_MIN_ORDER"
)

// MarketAnalysis summarizes a book. Pointer fields are nil when the value is
// undefined for the given book.
type MarketAnalysis struct {
	BestBid       *float64 `json:"bestBid"`
	BestAsk       *float64 `json:"bestAsk"`
	Spread        *float64 `json:"spread"`
	SpreadPercent *float64 `json:"spreadPercent"`
	BidDepth      float64  `json:"bidDepth"`
	AskDepth      float64  `json:"askDepth"`
	Imbalance     *float64 `json:"imbalance"`
}

func ptr(v float64) *float64 { return &v }

// AnalyzeMarket summarizes best prices, spread and full-book depth.
// SpreadPercent is relative to the best bid, in percent.
func AnalyzeMarket(book domain.OrderbookSnapshot) MarketAnalysis {
	var m MarketAnalysis
	if len(book.Bids) > 0 {
		m.BestBid = ptr(book.Bids[0].Price)
	}
	if len(book.Asks) > 0 {
		m.BestAsk = ptr(book.Asks[0].Price)
	}
	if m.BestBid != nil && m.BestAsk != nil {
		m.Spread = ptr(*m.BestAsk - *m.BestBid)
		if *m.BestBid != 0 {
			m.SpreadPercent = ptr(*m.Spread / *m.BestBid * 100)
		}
	}
	for _, l := range book.Bids {
		m.BidDepth += l.Qty
	}
	for _, l := range book.Asks {
		m.AskDepth += l.Qty
	}
	if total := m.BidDepth + m.AskDepth; total > 0 {
		m.Imbalance = ptr((m.BidDepth - m.AskDepth) / total)
	}
	return m
}

// SlippageResult is the outcome of walking the book for a given quantity.
type SlippageResult struct {
	AveragePrice    float64 `json:"averagePrice"`
	SlippagePercent float64 `json:"slippagePercent"`
	FilledQty       float64 `json:"filledQty"`
}

// CalculateSlippage walks levels in order filling qty and reports the
// average fill price against basePrice. A nil basePrice uses the first
// level's price.
func CalculateSlippage(levels []domain.PriceLevel, qty float64, basePrice *float64) SlippageResult {
	var filled, cost float64
	for _, l := range levels {
		fill := math.Min(l.Qty, qty-filled)
		cost += fill * l.Price
		filled += fill
		if filled >= qty {
			break
		}
	}

	var avg float64
	if filled > 0 {
		avg = cost / filled
	}

	base := avg
	switch {
	case basePrice != nil:
		base = *basePrice
	case len(levels) > 0:
		base = levels[0].Price
	}

	var slip float64
	if base > 0 {
		slip = (avg - base) / base * 100
	}
	return SlippageResult{AveragePrice: avg, SlippagePercent: slip, FilledQty: filled}
}

// RecommendOrderType prefers LIMIT when the spread is wider than threshold.
func RecommendOrderType(spreadPercent, threshold float64) domain.OrderType {
	if spreadPercent > threshold {
		return domain.OrderTypeLimit
	}
	return domain.OrderTypeMarket
}

// maxSplitChunks caps SplitOrder. Splits that would need more chunks are
// returned whole.
const maxSplitChunks = 10000

// SplitOrder breaks total into chunks of at most maxSingle. The last chunk
// carries the remainder.
func SplitOrder(total, maxSingle float64) []float64 {
	if maxSingle <= 0 {
		return []float64{total}
	}
	chunks := math.Ceil(total / maxSingle)
	if math.IsNaN(chunks) || chunks > maxSplitChunks {
		return []float64{total}
	}
	n := int(chunks)
	if n <= 0 {
		return []float64{}
	}
	sizes := make([]float64, n)
	for i := range sizes {
		sizes[i] = maxSingle
	}
	if rem := math.Mod(total, maxSingle); rem != 0 && !math.IsNaN(rem) {
		sizes[n-1] = rem
	}
	return sizes
}

// RiskInput is the balance check input. MinOrderKRW of 0 disables the
// minimum check.
type RiskInput struct {
	AvailableKRW float64
	OrderAmount  float64
	MinOrderKRW  float64
}

// RiskResult lists every failed risk check.
type RiskResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

// CheckRisk verifies the order amount against the available balance and the
// minimum order size.
func CheckRisk(in RiskInput) RiskResult {
	reasons := []string{}
	if in.OrderAmount > in.AvailableKRW {
		reasons = append(reasons, ReasonInsufficientBalance)
	}
	if in.OrderAmount < in.MinOrderKRW {
		reasons = append(reasons, ReasonBelowMinOrder)
	}
	return RiskResult{Valid: len(reasons) == 0, Reasons: reasons}
}

// MaxBuyableQty is how much can be bought with available at price.
func MaxBuyableQty(available, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return available / price
}
