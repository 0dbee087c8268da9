// Package app provides the top-level application lifecycle for coinonebot.
// It wires together all dependencies (exchange clients, caches, stores, blob
// storage, services and notifications) and starts the goroutines of the
// configured operating mode.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/config"
	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	startedAt time.Time
	closers   []func()
}

// New creates a new App from the given configuration and logger. Command
// output goes to stdout.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "app")),
		out:       os.Stdout,
		startedAt: time.Now().UTC(),
	}
}

// SetOutput redirects command output.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, starts the corresponding goroutines, and blocks until the
// context is cancelled. A cancelled context is a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(a.cfg.Mode) {
	case "analyze":
		err = a.AnalyzeMode(ctx, deps)
	case "monitor":
		err = a.MonitorMode(ctx, deps)
	case "server":
		err = a.ServerMode(ctx, deps)
	case "full":
		err = a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Analyze runs one analysis pass over pairs and writes the JSON results.
func (a *App) Analyze(ctx context.Context, pairs []string) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}
	results, err := a.analyzeAll(ctx, deps, pairs)
	if err != nil {
		return err
	}
	return a.writeJSON(results)
}

// Validate checks req against the live validation rules and writes the
// outcome as JSON. No order is placed.
func (a *App) Validate(ctx context.Context, req domain.OrderRequest) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}
	result, err := deps.Orders.Validate(ctx, req)
	if err != nil {
		return err
	}
	return a.writeJSON(result)
}

func (a *App) wire(ctx context.Context) (*Dependencies, error) {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	return deps, nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	if len(a.closers) == 0 {
		return
	}
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
