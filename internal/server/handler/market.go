package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// MarketService is the read-only market data the market handler exposes.
type MarketService interface {
	Ticker(ctx context.Context, target, quote string) (domain.Ticker, error)
	Tickers(ctx context.Context, quote string) ([]domain.Ticker, error)
	Orderbook(ctx context.Context, target, quote string, size int) (domain.OrderbookSnapshot, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	size    int
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler. size is the orderbook depth
// requested from the exchange.
func NewMarketHandler(markets MarketService, size int, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		size:    size,
		logger:  logger,
	}
}

type listTickersResponse struct {
	Quote   string          `json:"quote"`
	Tickers []domain.Ticker `json:"tickers"`
}

// ListTickers returns every ticker quoted in {quote}.
// GET /api/markets/{quote}
func (h *MarketHandler) ListTickers(w http.ResponseWriter, r *http.Request) {
	quote := strings.ToUpper(pathParam(r, "quote"))
	tickers, err := h.markets.Tickers(r.Context(), quote)
	if err != nil {
		failWith(w, r, h.logger, "list tickers", err)
		return
	}
	if tickers == nil {
		tickers = []domain.Ticker{}
	}
	writeJSON(w, http.StatusOK, listTickersResponse{Quote: quote, Tickers: tickers})
}

// GetTicker returns a single ticker.
// GET /api/markets/{quote}/{target}
func (h *MarketHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	ticker, err := h.markets.Ticker(r.Context(), target, quote)
	if err != nil {
		failWith(w, r, h.logger, "get ticker", err)
		return
	}
	writeJSON(w, http.StatusOK, ticker)
}

// GetOrderbook returns the current book for a pair.
// GET /api/markets/{quote}/{target}/orderbook
func (h *MarketHandler) GetOrderbook(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	book, err := h.markets.Orderbook(r.Context(), target, quote, h.size)
	if err != nil {
		failWith(w, r, h.logger, "get orderbook", err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}
