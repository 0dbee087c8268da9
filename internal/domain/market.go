package domain

import "time"

// Ticker is a 24h market summary.
type Ticker struct {
	Target       string    `json:"target"`
	Quote        string    `json:"quote"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	First        float64   `json:"first"`
	Last         float64   `json:"last"`
	QuoteVolume  float64   `json:"quoteVolume"`
	TargetVolume float64   `json:"targetVolume"`
	Timestamp    time.Time `json:"timestamp"`
}

// Currency describes a listed asset and its transfer status.
type Currency struct {
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	DepositStatus  string `json:"depositStatus"`
	WithdrawStatus string `json:"withdrawStatus"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	TargetVolume float64   `json:"targetVolume"`
	QuoteVolume  float64   `json:"quoteVolume"`
}
