package coinone

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/numeric"
)

// flexString unmarshals from a JSON string or number, so error_code and
// status fields decode whichever form the API sends.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// envelope is the status header every Coinone response carries.
type envelope struct {
	Result     string     `json:"result"`
	ErrorCode  flexString `json:"error_code"`
	ErrorCode2 flexString `json:"errorCode"`
}

func (e envelope) failed() bool {
	return e.Result != "" && e.Result != "success"
}

func (e envelope) code() string {
	if e.ErrorCode != "" {
		return string(e.ErrorCode)
	}
	return string(e.ErrorCode2)
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// --------------------------------------------------------------------------
// Public API DTOs
// --------------------------------------------------------------------------

// APITicker is one row of /public/v2/ticker_new.
type APITicker struct {
	QuoteCurrency  string       `json:"quote_currency"`
	TargetCurrency string       `json:"target_currency"`
	Timestamp      int64        `json:"timestamp"`
	High           numeric.Flex `json:"high"`
	Low            numeric.Flex `json:"low"`
	First          numeric.Flex `json:"first"`
	Last           numeric.Flex `json:"last"`
	QuoteVolume    numeric.Flex `json:"quote_volume"`
	TargetVolume   numeric.Flex `json:"target_volume"`
}

// ToDomain converts the DTO.
func (t APITicker) ToDomain() domain.Ticker {
	return domain.Ticker{
		Target:       strings.ToUpper(t.TargetCurrency),
		Quote:        strings.ToUpper(t.QuoteCurrency),
		High:         t.High.Float(),
		Low:          t.Low.Float(),
		First:        t.First.Float(),
		Last:         t.Last.Float(),
		QuoteVolume:  t.QuoteVolume.Float(),
		TargetVolume: t.TargetVolume.Float(),
		Timestamp:    msToTime(t.Timestamp),
	}
}

type tickerResponse struct {
	envelope
	Tickers []APITicker `json:"tickers"`
}

// APILevel is one orderbook entry.
type APILevel struct {
	Price numeric.Flex `json:"price"`
	Qty   numeric.Flex `json:"qty"`
}

// APIOrderbook is the /public/v2/orderbook response.
type APIOrderbook struct {
	envelope
	Timestamp      int64      `json:"timestamp"`
	QuoteCurrency  string     `json:"quote_currency"`
	TargetCurrency string     `json:"target_currency"`
	Bids           []APILevel `json:"bids"`
	Asks           []APILevel `json:"asks"`
}

func levelsToDomain(levels []APILevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, domain.PriceLevel{Price: l.Price.Float(), Qty: l.Qty.Float()})
	}
	return out
}

// ToDomain converts the DTO.
func (o APIOrderbook) ToDomain() domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		Target:    strings.ToUpper(o.TargetCurrency),
		Quote:     strings.ToUpper(o.QuoteCurrency),
		Bids:      levelsToDomain(o.Bids),
		Asks:      levelsToDomain(o.Asks),
		Timestamp: msToTime(o.Timestamp),
	}
}

// APIMarket is one row of /public/v2/markets.
type APIMarket struct {
	QuoteCurrency     string       `json:"quote_currency"`
	TargetCurrency    string       `json:"target_currency"`
	PriceUnit         numeric.Flex `json:"price_unit"`
	QtyUnit           numeric.Flex `json:"qty_unit"`
	MinQty            numeric.Flex `json:"min_qty"`
	MaxQty            numeric.Flex `json:"max_qty"`
	MinOrderAmount    numeric.Flex `json:"min_order_amount"`
	MaxOrderAmount    numeric.Flex `json:"max_order_amount"`
	MaintenanceStatus int          `json:"maintenance_status"`
}

// ToRangeUnit extracts the tick-size row.
func (m APIMarket) ToRangeUnit() domain.RangeUnit {
	return domain.RangeUnit{
		Target:    strings.ToUpper(m.TargetCurrency),
		Quote:     strings.ToUpper(m.QuoteCurrency),
		PriceUnit: m.PriceUnit.Float(),
		QtyUnit:   m.QtyUnit.Float(),
		MinQty:    m.MinQty.Float(),
		MaxQty:    m.MaxQty.Float(),
	}
}

// ToMarketInfo extracts the amount limits.
func (m APIMarket) ToMarketInfo() domain.MarketInfo {
	return domain.MarketInfo{
		Target:            strings.ToUpper(m.TargetCurrency),
		Quote:             strings.ToUpper(m.QuoteCurrency),
		MinOrderAmount:    m.MinOrderAmount.Float(),
		MaxOrderAmount:    m.MaxOrderAmount.Float(),
		MaintenanceStatus: m.MaintenanceStatus,
	}
}

type marketsResponse struct {
	envelope
	Markets []APIMarket `json:"markets"`
}

// APITrade is one row of /public/v2/trades.
type APITrade struct {
	Timestamp     int64        `json:"timestamp"`
	Price         numeric.Flex `json:"price"`
	Qty           numeric.Flex `json:"qty"`
	IsSellerMaker bool         `json:"is_seller_maker"`
}

// ToDomain converts the DTO.
func (t APITrade) ToDomain() domain.Trade {
	return domain.Trade{
		Timestamp:     t.Timestamp,
		Price:         t.Price.Float(),
		Qty:           t.Qty.Float(),
		IsSellerMaker: t.IsSellerMaker,
	}
}

type tradesResponse struct {
	envelope
	Transactions []APITrade `json:"transactions"`
}

// APICurrency is one row of /public/v2/currencies.
type APICurrency struct {
	Currency       string     `json:"currency"`
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name"`
	DepositStatus  flexString `json:"deposit_status"`
	WithdrawStatus flexString `json:"withdraw_status"`
}

// ToDomain converts the DTO.
func (c APICurrency) ToDomain() domain.Currency {
	sym := c.Symbol
	if sym == "" {
		sym = c.Currency
	}
	return domain.Currency{
		Symbol:         strings.ToUpper(sym),
		Name:           c.Name,
		DepositStatus:  string(c.DepositStatus),
		WithdrawStatus: string(c.WithdrawStatus),
	}
}

type currenciesResponse struct {
	envelope
	Currencies []APICurrency `json:"currencies"`
}

// APICandle is one row of /public/v2/chart.
type APICandle struct {
	Timestamp    int64        `json:"timestamp"`
	Open         numeric.Flex `json:"open"`
	High         numeric.Flex `json:"high"`
	Low          numeric.Flex `json:"low"`
	Close        numeric.Flex `json:"close"`
	TargetVolume numeric.Flex `json:"target_volume"`
	QuoteVolume  numeric.Flex `json:"quote_volume"`
}

// ToDomain converts the DTO.
func (c APICandle) ToDomain() domain.Candle {
	return domain.Candle{
		Timestamp:    msToTime(c.Timestamp),
		Open:         c.Open.Float(),
		High:         c.High.Float(),
		Low:          c.Low.Float(),
		Close:        c.Close.Float(),
		TargetVolume: c.TargetVolume.Float(),
		QuoteVolume:  c.QuoteVolume.Float(),
	}
}

type chartResponse struct {
	envelope
	Chart []APICandle `json:"chart"`
}

// --------------------------------------------------------------------------
// Private API DTOs
// --------------------------------------------------------------------------

// APIBalance is one currency entry of /v2/account/balance.
type APIBalance struct {
	Avail   numeric.Flex `json:"avail"`
	Balance numeric.Flex `json:"balance"`
}

// APIOrderResponse is the /v2.1/order and /v2.1/order/cancel response.
type APIOrderResponse struct {
	envelope
	OrderID string `json:"order_id"`
}

// ToDomain converts the DTO.
func (r APIOrderResponse) ToDomain() domain.OrderResult {
	res := domain.OrderResult{
		Success:   !r.failed(),
		OrderID:   r.OrderID,
		ErrorCode: r.code(),
	}
	if code, err := strconv.Atoi(res.ErrorCode); err == nil && code != 0 {
		res.Message = ErrorMessage(code, "en")
	}
	return res
}

// APIActiveOrder is one row of /v2.1/order/active_orders.
type APIActiveOrder struct {
	OrderID        string       `json:"order_id"`
	Type           string       `json:"type"`
	Side           string       `json:"side"`
	QuoteCurrency  string       `json:"quote_currency"`
	TargetCurrency string       `json:"target_currency"`
	Price          numeric.Flex `json:"price"`
	Qty            numeric.Flex `json:"qty"`
	RemainQty      numeric.Flex `json:"remain_qty"`
}

// ToDomain converts the DTO. Remaining quantity wins over the original.
func (o APIActiveOrder) ToDomain() domain.ActiveOrder {
	qty := o.Qty.Float()
	if o.RemainQty != 0 {
		qty = o.RemainQty.Float()
	}
	return domain.ActiveOrder{
		OrderID: o.OrderID,
		Target:  strings.ToUpper(o.TargetCurrency),
		Quote:   strings.ToUpper(o.QuoteCurrency),
		Side:    domain.OrderSide(strings.ToUpper(o.Side)),
		Type:    domain.OrderType(strings.ToUpper(o.Type)),
		Price:   o.Price.Float(),
		Qty:     qty,
	}
}

type activeOrdersResponse struct {
	envelope
	ActiveOrders []APIActiveOrder `json:"active_orders"`
}
