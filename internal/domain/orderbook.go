package domain

import (
	"strings"
	"time"
)

// DefaultQuote is the quote currency assumed when none is given.
const DefaultQuote = "KRW"

// Symbol renders a pair as "TARGET/QUOTE".
func Symbol(target, quote string) string {
	return strings.ToUpper(target) + "/" + strings.ToUpper(quote)
}

// ParseSymbol splits "BTC/KRW", "btc_krw" or a bare "BTC" into target and
// quote. A bare target gets DefaultQuote.
func ParseSymbol(s string) (target, quote string) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "_", "-"} {
		if t, q, ok := strings.Cut(s, sep); ok {
			return t, q
		}
	}
	return s, DefaultQuote
}

// PriceLevel is a single price+quantity entry in an orderbook.
type PriceLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// OrderbookSnapshot is a point-in-time view of one pair's book. Bids are
// best (highest) first, asks best (lowest) first.
type OrderbookSnapshot struct {
	Target    string       `json:"target"`
	Quote     string       `json:"quote"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// Symbol returns the snapshot's pair as "TARGET/QUOTE".
func (s OrderbookSnapshot) Symbol() string {
	return Symbol(s.Target, s.Quote)
}
