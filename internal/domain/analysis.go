package domain

// Flag names raised by the snapshot analyzer.
const (
	FlagAggressiveBuyWave  = "aggressive_buy_wave"
	FlagAggressiveSellWave = "aggressive_sell_wave"
	FlagThinBookRisk       = "thin_book_risk"
)

// Wall is a price level holding outsized resting quantity.
type Wall struct {
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Void is a gap in the book between adjacent levels.
type Void struct {
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Gap   float64 `json:"gap"`
}

// Whale is an outsized individual trade.
type Whale struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type OBILevels struct {
	Top1  float64 `json:"top1"`
	Top5  float64 `json:"top5"`
	Top10 float64 `json:"top10"`
}

type SpreadSummary struct {
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
}

type OrderbookAnalysis struct {
	OBI            OBILevels     `json:"obi"`
	WOBI           float64       `json:"wobi"`
	Spread         SpreadSummary `json:"spread"`
	LiquiditySlope float64       `json:"liquiditySlope"`
	Walls          []Wall        `json:"walls"`
	Voids          []Void        `json:"voids"`
}

type Burst struct {
	TradesPerSec float64 `json:"tradesPerSec"`
	Flag         bool    `json:"flag"`
}

type TradeAnalysis struct {
	BuyVolume       float64 `json:"buyVolume"`
	SellVolume      float64 `json:"sellVolume"`
	VolumeImbalance float64 `json:"volumeImbalance"`
	VWAP            float64 `json:"vwap"`
	VWAPDrift       float64 `json:"vwapDrift"`
	Burst           Burst   `json:"burst"`
	Whales          []Whale `json:"whales"`
}

type Scores struct {
	MarketPressure float64 `json:"marketPressure"`
	LiquidityScore float64 `json:"liquidityScore"`
}

// AnalysisResult is the full microstructure report for one snapshot.
type AnalysisResult struct {
	Timestamp int64             `json:"timestamp"` // unix seconds
	Symbol    string            `json:"symbol"`
	Orderbook OrderbookAnalysis `json:"orderbook"`
	Trades    TradeAnalysis     `json:"trades"`
	Scores    Scores            `json:"scores"`
	Flags     []string          `json:"flags"`
}

// HasFlag reports whether the result carries the named flag.
func (r AnalysisResult) HasFlag(name string) bool {
	for _, f := range r.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// FlagEvent is published on ChannelFlags whenever an analysis raises flags.
type FlagEvent struct {
	Symbol    string   `json:"symbol"`
	Timestamp int64    `json:"timestamp"`
	Flags     []string `json:"flags"`
	Scores    Scores   `json:"scores"`
}
