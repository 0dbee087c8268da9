// Package server is the HTTP + WebSocket API of the analyzer.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/server/handler"
	"github.com/alanyoungcy/coinonebot/internal/server/middleware"
	"github.com/alanyoungcy/coinonebot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per RateWindow per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Nil handlers leave their routes unregistered.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Markets  *handler.MarketHandler
	Analysis *handler.AnalysisHandler
	Rules    *handler.RulesHandler
	Orders   *handler.OrderHandler
	Metrics  http.Handler
}

// Options are the optional cross-cutting collaborators.
type Options struct {
	Hub         *ws.Hub
	RateLimiter domain.RateLimiter
	Observer    middleware.HTTPObserver
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// publicPaths bypass API-key authentication.
var publicPaths = []string{"/api/health", "/metrics"}

// NewServer creates a Server with all routes registered on a ServeMux behind
// the middleware chain.
func NewServer(cfg Config, handlers Handlers, opts Options, logger *slog.Logger) *Server {
	mux := NewMux(handlers, opts.Hub)

	var h http.Handler = mux
	if opts.RateLimiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(opts.RateLimiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Auth(cfg.APIKey, publicPaths...)(h)
	if opts.Observer != nil {
		h = middleware.Metrics(opts.Observer)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewMux registers every route without middleware.
func NewMux(handlers Handlers, hub *ws.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	if handlers.Status != nil {
		mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}

	if handlers.Markets != nil {
		mux.HandleFunc("GET /api/markets/{quote}", handlers.Markets.ListTickers)
		mux.HandleFunc("GET /api/markets/{quote}/{target}", handlers.Markets.GetTicker)
		mux.HandleFunc("GET /api/markets/{quote}/{target}/orderbook", handlers.Markets.GetOrderbook)
	}

	if handlers.Analysis != nil {
		mux.HandleFunc("GET /api/analysis/{quote}/{target}", handlers.Analysis.Analyze)
		mux.HandleFunc("GET /api/analysis/{quote}/{target}/latest", handlers.Analysis.Latest)
		mux.HandleFunc("GET /api/analysis/{quote}/{target}/history", handlers.Analysis.History)
	}

	if handlers.Rules != nil {
		mux.HandleFunc("GET /api/rules/{quote}/{target}", handlers.Rules.GetRules)
	}

	if handlers.Orders != nil {
		mux.HandleFunc("POST /api/orders/validate", handlers.Orders.Validate)
		mux.HandleFunc("POST /api/orders/precheck", handlers.Orders.PreCheck)
		mux.HandleFunc("POST /api/orders/plan", handlers.Orders.Plan)
		mux.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
		mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)
	}

	mux.HandleFunc("GET /api/errors/{code}", handler.GetErrorCode)

	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}
	return mux
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
