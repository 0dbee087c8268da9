package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/service"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	Validate(ctx context.Context, req domain.OrderRequest) (domain.OrderValidation, error)
	PreCheck(ctx context.Context, req domain.OrderRequest) (domain.PreCheckResult, error)
	Plan(ctx context.Context, req domain.OrderRequest) (service.OrderPlan, error)
	Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
	Cancel(ctx context.Context, orderID, target, quote string) (domain.OrderResult, error)
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request) (domain.OrderRequest, bool) {
	var req domain.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// Validate checks an order against the pair's rules without placing it.
// POST /api/orders/validate
func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	v, err := h.orders.Validate(r.Context(), req)
	if err != nil {
		failWith(w, r, h.logger, "validate order", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PreCheck reports the first violated rule, if any.
// POST /api/orders/precheck
func (h *OrderHandler) PreCheck(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.orders.PreCheck(r.Context(), req)
	if err != nil {
		failWith(w, r, h.logger, "precheck order", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Plan estimates slippage and an execution split from the live book.
// POST /api/orders/plan
func (h *OrderHandler) Plan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	plan, err := h.orders.Plan(r.Context(), req)
	if err != nil {
		failWith(w, r, h.logger, "plan order", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlaceOrder validates and submits an order.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.orders.Submit(r.Context(), req)
	if err != nil {
		failWith(w, r, h.logger, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// CancelOrder cancels an existing order by its ID.
// DELETE /api/orders/{id}?target=BTC&quote=KRW
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}
	q := r.URL.Query()
	target := q.Get("target")
	if target == "" {
		writeError(w, http.StatusBadRequest, "target query parameter required")
		return
	}

	result, err := h.orders.Cancel(r.Context(), id, target, q.Get("quote"))
	if err != nil {
		failWith(w, r, h.logger.With(slog.String("order_id", id)), "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
