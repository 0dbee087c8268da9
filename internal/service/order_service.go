package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/notify"
	"github.com/alanyoungcy/coinonebot/internal/numeric"
	"github.com/alanyoungcy/coinonebot/internal/trading"
	"github.com/alanyoungcy/coinonebot/internal/validation"
)

// RulesProvider resolves validation rules for a pair.
type RulesProvider interface {
	Rules(ctx context.Context, target, quote string) (domain.ValidationRules, error)
}

// ValidationObserver records validation metrics.
type ValidationObserver interface {
	ObserveValidation(valid bool)
}

// EventNotifier sends a filtered event alert.
type EventNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OrderConfig holds the order-path tunables.
type OrderConfig struct {
	Enabled            bool
	MaxSingleOrder     float64
	SpreadThresholdPct float64
	MaxSlippagePct     float64
	OrderbookSize      int
}

// OrderDeps are the optional collaborators of an OrderService.
type OrderDeps struct {
	// Trader is nil when no API credentials are configured.
	Trader   domain.TradingClient
	Audit    domain.AuditStore
	Metrics  ValidationObserver
	Notifier EventNotifier
}

// OrderService validates, plans and submits orders.
type OrderService struct {
	rules  RulesProvider
	market domain.MarketDataClient
	deps   OrderDeps
	cfg    OrderConfig
	logger *slog.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(rules RulesProvider, market domain.MarketDataClient, deps OrderDeps, cfg OrderConfig, logger *slog.Logger) *OrderService {
	return &OrderService{
		rules:  rules,
		market: market,
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "order_service")),
	}
}

// OrderPlan is a pre-trade estimate taken from the live book.
type OrderPlan struct {
	Symbol          string                 `json:"symbol"`
	Side            domain.OrderSide       `json:"side"`
	Qty             float64                `json:"qty"`
	Market          trading.MarketAnalysis `json:"market"`
	Slippage        trading.SlippageResult `json:"slippage"`
	RecommendedType domain.OrderType       `json:"recommendedType"`
	Chunks          []float64              `json:"chunks"`
	Warnings        []string               `json:"warnings"`
}

func normalizeRequest(req domain.OrderRequest) domain.OrderRequest {
	req.Target, req.Quote = normalizePair(req.Target, req.Quote)
	req.Side = domain.OrderSide(strings.ToUpper(string(req.Side)))
	req.Type = domain.OrderType(strings.ToUpper(string(req.Type)))
	if req.Type == "" {
		req.Type = domain.OrderTypeLimit
	}
	return req
}

func checkShape(req domain.OrderRequest) error {
	if req.Target == "" {
		return fmt.Errorf("%w: target currency is required", domain.ErrInvalidOrder)
	}
	switch req.Side {
	case domain.OrderSideBuy, domain.OrderSideSell:
	default:
		return fmt.Errorf("%w: side must be BUY or SELL", domain.ErrInvalidOrder)
	}
	switch req.Type {
	case domain.OrderTypeLimit, domain.OrderTypeMarket, domain.OrderTypeStopLimit:
	default:
		return fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidOrder, req.Type)
	}
	return nil
}

// referencePrice is the price validated for req. Market orders without a
// price are checked against the opposite best level.
func (s *OrderService) referencePrice(ctx context.Context, req domain.OrderRequest) (float64, error) {
	if req.Type != domain.OrderTypeMarket || req.Price > 0 {
		return req.Price, nil
	}
	book, err := s.market.Orderbook(ctx, req.Target, req.Quote, s.cfg.OrderbookSize)
	if err != nil {
		return 0, fmt.Errorf("service: reference price %s: %w", req.Symbol(), err)
	}
	levels := book.Asks
	if req.Side == domain.OrderSideSell {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return 0, fmt.Errorf("service: reference price %s: empty book side: %w", req.Symbol(), domain.ErrNotFound)
	}
	return levels[0].Price, nil
}

// marketQty is the quantity validated for a market buy sized by amount.
func marketQty(req domain.OrderRequest, price float64) float64 {
	if req.Type == domain.OrderTypeMarket && req.Side == domain.OrderSideBuy && req.Qty == 0 && price > 0 {
		return req.Amount / price
	}
	return req.Qty
}

type checked struct {
	req        domain.OrderRequest
	rules      domain.ValidationRules
	price, qty float64
	validation domain.OrderValidation
}

func (s *OrderService) check(ctx context.Context, req domain.OrderRequest) (checked, error) {
	req = normalizeRequest(req)
	if err := checkShape(req); err != nil {
		return checked{}, err
	}
	rules, err := s.rules.Rules(ctx, req.Target, req.Quote)
	if err != nil {
		return checked{}, err
	}
	price, err := s.referencePrice(ctx, req)
	if err != nil {
		return checked{}, err
	}
	qty := marketQty(req, price)
	return checked{
		req:        req,
		rules:      rules,
		price:      price,
		qty:        qty,
		validation: validation.ValidateOrder(price, qty, rules),
	}, nil
}

// Validate checks req against the pair's exchange rules.
func (s *OrderService) Validate(ctx context.Context, req domain.OrderRequest) (domain.OrderValidation, error) {
	c, err := s.check(ctx, req)
	if err != nil {
		return domain.OrderValidation{}, err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveValidation(c.validation.Valid)
	}
	s.audit(ctx, domain.AuditOrderValidated, c.req, map[string]any{
		"valid":    c.validation.Valid,
		"errors":   c.validation.Errors,
		"warnings": c.validation.Warnings,
	})
	return c.validation, nil
}

// PreCheck reports the first rule violation of req, if any.
func (s *OrderService) PreCheck(ctx context.Context, req domain.OrderRequest) (domain.PreCheckResult, error) {
	c, err := s.check(ctx, req)
	if err != nil {
		return domain.PreCheckResult{}, err
	}
	return validation.PreCheckOrder(c.price, c.qty, c.rules), nil
}

// Submit validates req, checks the quote balance for limit buys and places
// the order at tick-adjusted price and quantity.
func (s *OrderService) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if !s.cfg.Enabled || s.deps.Trader == nil {
		return domain.OrderResult{}, domain.ErrOrdersDisabled
	}

	c, err := s.check(ctx, req)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveValidation(c.validation.Valid)
	}
	if !c.validation.Valid {
		s.audit(ctx, domain.AuditOrderRejected, c.req, map[string]any{"errors": c.validation.Errors})
		return domain.OrderResult{}, fmt.Errorf("service: submit %s: %w: %s",
			c.req.Symbol(), domain.ErrInvalidOrder, strings.Join(c.validation.Errors, "; "))
	}

	if c.req.Side == domain.OrderSideBuy && c.req.Type == domain.OrderTypeLimit {
		if err := s.checkBalance(ctx, c); err != nil {
			return domain.OrderResult{}, err
		}
	}

	params := placeParams(c)
	result, err := s.deps.Trader.PlaceOrder(ctx, params)
	if err != nil {
		s.audit(ctx, domain.AuditOrderRejected, c.req, map[string]any{"error": err.Error()})
		return domain.OrderResult{}, fmt.Errorf("service: submit %s: %w", c.req.Symbol(), err)
	}

	s.audit(ctx, domain.AuditOrderSubmitted, c.req, map[string]any{
		"order_id":     result.OrderID,
		"placed_price": params.Price,
		"placed_qty":   params.Qty,
		"amount":       params.Amount,
	})
	s.logger.InfoContext(ctx, "order submitted",
		slog.String("symbol", c.req.Symbol()),
		slog.String("side", string(c.req.Side)),
		slog.String("type", string(c.req.Type)),
		slog.String("order_id", result.OrderID),
	)
	if s.deps.Notifier != nil {
		msg := fmt.Sprintf("%s %s %s price=%s qty=%s id=%s",
			c.req.Side, c.req.Type, c.req.Symbol(), params.Price, params.Qty, result.OrderID)
		if err := s.deps.Notifier.Notify(ctx, notify.EventOrderSubmitted, "Order submitted", msg); err != nil {
			s.logger.WarnContext(ctx, "order notification failed", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

func (s *OrderService) checkBalance(ctx context.Context, c checked) error {
	balances, err := s.deps.Trader.Balances(ctx)
	if err != nil {
		return fmt.Errorf("service: balance for %s: %w", c.req.Symbol(), err)
	}
	price := validation.RoundToTickSize(c.price, c.rules.PriceUnit)
	qty := validation.RoundToTickSize(c.qty, c.rules.QtyUnit)
	risk := trading.CheckRisk(trading.RiskInput{
		AvailableKRW: balances[c.req.Quote].Available,
		OrderAmount:  price * qty,
		MinOrderKRW:  c.rules.MinOrderAmount,
	})
	if !risk.Valid {
		s.audit(ctx, domain.AuditOrderRejected, c.req, map[string]any{"risk": risk.Reasons})
		return fmt.Errorf("service: submit %s: %w: %s",
			c.req.Symbol(), domain.ErrInvalidOrder, strings.Join(risk.Reasons, ", "))
	}
	return nil
}

// placeParams renders the exchange fields. Market buys are sized by quote
// amount, every other order by quantity.
func placeParams(c checked) domain.PlaceOrderParams {
	req := c.req
	p := domain.PlaceOrderParams{
		Target:   req.Target,
		Quote:    req.Quote,
		Side:     req.Side,
		Type:     req.Type,
		PostOnly: req.PostOnly,
	}
	switch {
	case req.Type == domain.OrderTypeMarket && req.Side == domain.OrderSideBuy:
		amount := req.Amount
		if amount <= 0 {
			amount = c.price * req.Qty
		}
		p.Amount = numeric.Format(amount)
		p.PostOnly = nil
	case req.Type == domain.OrderTypeMarket:
		p.Qty = c.validation.AdjustedQty
		p.PostOnly = nil
	default:
		p.Price = c.validation.AdjustedPrice
		p.Qty = c.validation.AdjustedQty
	}
	if req.Type == domain.OrderTypeStopLimit && req.TriggerPrice > 0 {
		p.TriggerPrice = validation.FormatAtTick(req.TriggerPrice, c.rules.PriceUnit)
	}
	return p
}

// Cancel cancels an open order.
func (s *OrderService) Cancel(ctx context.Context, orderID, target, quote string) (domain.OrderResult, error) {
	if !s.cfg.Enabled || s.deps.Trader == nil {
		return domain.OrderResult{}, domain.ErrOrdersDisabled
	}
	target, quote = normalizePair(target, quote)
	if orderID == "" || target == "" {
		return domain.OrderResult{}, fmt.Errorf("%w: order id and target currency are required", domain.ErrInvalidOrder)
	}

	result, err := s.deps.Trader.CancelOrder(ctx, orderID, target, quote)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("service: cancel %s: %w", orderID, err)
	}
	s.audit(ctx, domain.AuditOrderCanceled, domain.OrderRequest{Target: target, Quote: quote}, map[string]any{
		"order_id": orderID,
	})
	return result, nil
}

// Plan estimates slippage and recommends an order type and split for req
// from the live book.
func (s *OrderService) Plan(ctx context.Context, req domain.OrderRequest) (OrderPlan, error) {
	req = normalizeRequest(req)
	if err := checkShape(req); err != nil {
		return OrderPlan{}, err
	}

	book, err := s.market.Orderbook(ctx, req.Target, req.Quote, s.cfg.OrderbookSize)
	if err != nil {
		return OrderPlan{}, fmt.Errorf("service: plan %s: %w", req.Symbol(), err)
	}

	market := trading.AnalyzeMarket(book)
	levels := book.Asks
	if req.Side == domain.OrderSideSell {
		levels = book.Bids
	}
	slip := trading.CalculateSlippage(levels, req.Qty, nil)

	spreadPct := 0.0
	if market.SpreadPercent != nil {
		spreadPct = *market.SpreadPercent
	}

	plan := OrderPlan{
		Symbol:          req.Symbol(),
		Side:            req.Side,
		Qty:             req.Qty,
		Market:          market,
		Slippage:        slip,
		RecommendedType: trading.RecommendOrderType(spreadPct, s.cfg.SpreadThresholdPct),
		Chunks:          trading.SplitOrder(req.Qty, s.cfg.MaxSingleOrder),
		Warnings:        []string{},
	}
	if slip.FilledQty < req.Qty {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("book depth %s fills only %s of %s", req.Side, numeric.Format(slip.FilledQty), numeric.Format(req.Qty)))
	}
	if s.cfg.MaxSlippagePct > 0 && math.Abs(slip.SlippagePercent) > s.cfg.MaxSlippagePct {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("estimated slippage %.4f%% exceeds limit %.4f%%", math.Abs(slip.SlippagePercent), s.cfg.MaxSlippagePct))
	}
	return plan, nil
}

func (s *OrderService) audit(ctx context.Context, event string, req domain.OrderRequest, detail map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	detail["symbol"] = req.Symbol()
	if req.Side != "" {
		detail["side"] = string(req.Side)
		detail["type"] = string(req.Type)
		detail["price"] = req.Price
		detail["qty"] = req.Qty
	}
	if err := s.deps.Audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
