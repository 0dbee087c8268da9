// Package validation checks proposed orders against a market's tick-size and
// amount limits.
package validation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/numeric"
)

// RoundToTickSize rounds value to the nearest multiple of tick, halves away
// from zero. A non-positive tick leaves value unchanged.
func RoundToTickSize(value, tick float64) float64 {
	if tick <= 0 {
		return value
	}
	return math.Round(value/tick) * tick
}

// FormatAtTick renders value with no more decimal places than tick carries,
// trimming float noise such as 0.0006000000000000001.
func FormatAtTick(value, tick float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return numeric.Format(value)
	}
	d := decimal.NewFromFloat(value)
	if tick > 0 && !math.IsInf(tick, 0) {
		places := -decimal.NewFromFloat(tick).Exponent()
		if places < 0 {
			places = 0
		}
		d = d.Round(places)
	}
	return d.String()
}

// adjustToTick rounds value to tick and renders it. The value counts as
// changed only when the rendered result differs from value at decimal
// precision, so float noise from the rounding itself is ignored.
func adjustToTick(value, tick float64) (string, bool) {
	rendered := FormatAtTick(RoundToTickSize(value, tick), tick)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return rendered, false
	}
	adj, err := decimal.NewFromString(rendered)
	if err != nil {
		return rendered, true
	}
	return rendered, !adj.Equal(decimal.NewFromFloat(value))
}

// ValidateOrder runs every bound check on the raw price and quantity, rounds
// both to their ticks, and reports each adjustment as a warning. Rounding is
// reported regardless of validity.
func ValidateOrder(price, qty float64, rules domain.ValidationRules) domain.OrderValidation {
	errs := []string{}
	warnings := []string{}

	if qty < rules.MinQty {
		errs = append(errs, fmt.Sprintf("Quantity %s is below minimum %s", numeric.Format(qty), numeric.Format(rules.MinQty)))
	}
	if qty > rules.MaxQty {
		errs = append(errs, fmt.Sprintf("Quantity %s exceeds maximum %s", numeric.Format(qty), numeric.Format(rules.MaxQty)))
	}

	amount := price * qty
	if amount < rules.MinOrderAmount {
		errs = append(errs, fmt.Sprintf("Order amount %s is below minimum %s", numeric.Format(amount), numeric.Format(rules.MinOrderAmount)))
	}
	if amount > rules.MaxOrderAmount {
		errs = append(errs, fmt.Sprintf("Order amount %s exceeds maximum %s", numeric.Format(amount), numeric.Format(rules.MaxOrderAmount)))
	}

	adjPriceStr, changed := adjustToTick(price, rules.PriceUnit)
	if changed {
		warnings = append(warnings, fmt.Sprintf("Price adjusted from %s to %s (tick size: %s)",
			numeric.Format(price), adjPriceStr, numeric.Format(rules.PriceUnit)))
	}

	adjQtyStr, changed := adjustToTick(qty, rules.QtyUnit)
	if changed {
		warnings = append(warnings, fmt.Sprintf("Quantity adjusted from %s to %s (tick size: %s)",
			numeric.Format(qty), adjQtyStr, numeric.Format(rules.QtyUnit)))
	}

	return domain.OrderValidation{
		Valid:         len(errs) == 0,
		Errors:        errs,
		Warnings:      warnings,
		AdjustedPrice: adjPriceStr,
		AdjustedQty:   adjQtyStr,
	}
}

// PreCheckOrder runs the same bound checks as ValidateOrder but stops at the
// first failure. No rounding is performed.
func PreCheckOrder(price, qty float64, rules domain.ValidationRules) domain.PreCheckResult {
	if qty < rules.MinQty {
		return domain.PreCheckResult{Reason: fmt.Sprintf("Quantity below minimum (%s)", numeric.Format(rules.MinQty))}
	}
	if qty > rules.MaxQty {
		return domain.PreCheckResult{Reason: fmt.Sprintf("Quantity above maximum (%s)", numeric.Format(rules.MaxQty))}
	}
	amount := price * qty
	if amount < rules.MinOrderAmount {
		return domain.PreCheckResult{Reason: fmt.Sprintf("Order amount below minimum (%s)", numeric.Format(rules.MinOrderAmount))}
	}
	if amount > rules.MaxOrderAmount {
		return domain.PreCheckResult{Reason: fmt.Sprintf("Order amount above maximum (%s)", numeric.Format(rules.MaxOrderAmount))}
	}
	return domain.PreCheckResult{OK: true}
}
