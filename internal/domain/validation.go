package domain

// RangeUnit is one row of the exchange's tick-size table.
type RangeUnit struct {
	Target    string  `json:"target"`
	Quote     string  `json:"quote"`
	PriceUnit float64 `json:"priceUnit"`
	QtyUnit   float64 `json:"qtyUnit"`
	MinQty    float64 `json:"minQty"`
	MaxQty    float64 `json:"maxQty"`
}

// MarketInfo carries per-market amount limits and status.
type MarketInfo struct {
	Target            string  `json:"target"`
	Quote             string  `json:"quote"`
	MinOrderAmount    float64 `json:"minOrderAmount"`
	MaxOrderAmount    float64 `json:"maxOrderAmount"`
	MaintenanceStatus int     `json:"maintenanceStatus"`
}

// ValidationRules are the limits an order must satisfy for one market.
type ValidationRules struct {
	PriceUnit      float64 `json:"priceUnit"`
	QtyUnit        float64 `json:"qtyUnit"`
	MinQty         float64 `json:"minQty"`
	MaxQty         float64 `json:"maxQty"`
	MinOrderAmount float64 `json:"minOrderAmount"`
	MaxOrderAmount float64 `json:"maxOrderAmount"`
}

// OrderValidation is the outcome of a full order check.
type OrderValidation struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	AdjustedPrice string   `json:"adjustedPrice"`
	AdjustedQty   string   `json:"adjustedQty"`
}

// PreCheckResult is the outcome of the short-circuit order check.
type PreCheckResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
