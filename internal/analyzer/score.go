package analyzer

import (
	"math"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const (
	pressureBuyThreshold  = 0.3
	pressureSellThreshold = -0.3
	thinBookThreshold     = 0.2
)

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// MarketPressureIndex blends book and flow signals into [-1, 1].
func MarketPressureIndex(wobi, volumeImbalance, spreadPct, vwapDriftPct float64) float64 {
	return clamp(0.4*wobi + 0.3*volumeImbalance - 0.2*spreadPct + 0.1*vwapDriftPct)
}

// LiquidityScore rates book depth and shape against the spread, in [-1, 1].
func LiquidityScore(depth10, slope, spreadPct float64) float64 {
	return clamp(math.Tanh(depth10/10) + math.Tanh(slope) - math.Tanh(spreadPct*100))
}

// Flags derives alert flags from the composite scores.
func Flags(marketPressure, liquidityScore float64) []string {
	flags := []string{}
	if marketPressure > pressureBuyThreshold {
		flags = append(flags, domain.FlagAggressiveBuyWave)
	}
	if marketPressure < pressureSellThreshold {
		flags = append(flags, domain.FlagAggressiveSellWave)
	}
	if liquidityScore < thinBookThreshold {
		flags = append(flags, domain.FlagThinBookRisk)
	}
	return flags
}
