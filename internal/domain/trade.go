package domain

// Trade is one executed public trade. IsSellerMaker true counts the trade as
// sell-side flow and false as buy-side flow. Timestamp is the exchange's
// unix milliseconds.
type Trade struct {
	Timestamp     int64   `json:"timestamp"`
	Price         float64 `json:"price"`
	Qty           float64 `json:"qty"`
	IsSellerMaker bool    `json:"isSellerMaker"`
}
