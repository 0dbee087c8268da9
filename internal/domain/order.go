package domain

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the Coinone order kind.
type OrderType string

const (
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OrderRequest is a proposed order before validation.
type OrderRequest struct {
	Target       string    `json:"target"`
	Quote        string    `json:"quote"`
	Side         OrderSide `json:"side"`
	Type         OrderType `json:"type"`
	Price        float64   `json:"price"`
	Qty          float64   `json:"qty"`
	Amount       float64   `json:"amount,omitempty"` // quote amount for MARKET buys
	PostOnly     *bool     `json:"postOnly,omitempty"`
	TriggerPrice float64   `json:"triggerPrice,omitempty"`
}

// Symbol returns the request's pair as "TARGET/QUOTE".
func (r OrderRequest) Symbol() string {
	return Symbol(r.Target, r.Quote)
}

// PlaceOrderParams is the exchange-ready form of an order. Numeric fields are
// already rendered at tick precision; empty strings are omitted from the wire.
type PlaceOrderParams struct {
	Target       string
	Quote        string
	Side         OrderSide
	Type         OrderType
	Price        string
	Qty          string
	Amount       string
	PostOnly     *bool
	TriggerPrice string
}

// OrderResult wraps the exchange response after submission or cancellation.
type OrderResult struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"orderId"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ActiveOrder is an open order resting on the book.
type ActiveOrder struct {
	OrderID string    `json:"orderId"`
	Target  string    `json:"target"`
	Quote   string    `json:"quote"`
	Side    OrderSide `json:"side"`
	Type    OrderType `json:"type"`
	Price   float64   `json:"price"`
	Qty     float64   `json:"qty"`
}

// Balance is one currency's holdings.
type Balance struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available"`
	Total     float64 `json:"total"`
}
