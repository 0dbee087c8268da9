package analyzer

import "github.com/alanyoungcy/coinonebot/internal/domain"

const (
	DefaultBurstWindowSec = 30.0
	DefaultBurstThreshold = 5.0
)

// Flow is the buy/sell split of a trade window.
type Flow struct {
	BuyVolume       float64 `json:"buyVolume"`
	SellVolume      float64 `json:"sellVolume"`
	VolumeImbalance float64 `json:"volumeImbalance"`
}

// ClassifyTradeFlow splits volume by aggressor. Seller-maker trades are sells.
func ClassifyTradeFlow(trades []domain.Trade) Flow {
	var f Flow
	for _, t := range trades {
		if t.IsSellerMaker {
			f.SellVolume += t.Qty
		} else {
			f.BuyVolume += t.Qty
		}
	}
	if total := f.BuyVolume + f.SellVolume; total != 0 {
		f.VolumeImbalance = (f.BuyVolume - f.SellVolume) / total
	}
	return f
}

// VWAP returns the volume-weighted average price, or 0 with no volume.
func VWAP(trades []domain.Trade) float64 {
	var vol, notional float64
	for _, t := range trades {
		vol += t.Qty
		notional += t.Price * t.Qty
	}
	if vol == 0 {
		return 0
	}
	return notional / vol
}

// VWAPDrift is the last trade price minus VWAP. Trades are in time order.
func VWAPDrift(trades []domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return trades[len(trades)-1].Price - VWAP(trades)
}

// DetectTradeBurst reports the trade rate over windowSec seconds and whether
// it reaches threshold trades per second. windowSec must be positive.
func DetectTradeBurst(trades []domain.Trade, windowSec, threshold float64) domain.Burst {
	rate := float64(len(trades)) / windowSec
	return domain.Burst{TradesPerSec: rate, Flag: rate >= threshold}
}
