// Command coinonebot is the entry point for the Coinone market microstructure
// analyzer. It loads configuration, sets up logging and signal handling, and
// runs either a long-lived mode or a one-shot command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/coinonebot/internal/app"
	"github.com/alanyoungcy/coinonebot/internal/config"
	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/platform/coinone"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "coinonebot",
		Short:         "Coinone order-book analyzer and order validator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to configuration file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the configured mode (analyze, monitor, server or full)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(configPath, os.Stdout)
			if err != nil {
				return err
			}
			logger.Info("coinonebot starting",
				slog.String("mode", cfg.Mode),
				slog.String("config", configPath),
			)

			application := app.New(cfg, logger)
			defer application.Close()

			if err := application.Run(cmd.Context()); err != nil {
				logger.Error("application exited with error", slog.String("error", err.Error()))
				return err
			}
			logger.Info("coinonebot stopped")
			return nil
		},
	}
	root.RunE = run.RunE

	root.AddCommand(
		run,
		newAnalyzeCmd(&configPath),
		newValidateCmd(&configPath),
		newErrcodeCmd(),
	)
	return root
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [PAIR...]",
		Short: "Analyze pairs once and print JSON (defaults to the configured pairs)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, os.Stderr)
			if err != nil {
				return err
			}
			pairs := cfg.Analyzer.Pairs
			if len(args) > 0 {
				pairs = args
			}

			application := app.New(cfg, logger)
			defer application.Close()
			application.SetOutput(cmd.OutOrStdout())
			return application.Analyze(cmd.Context(), pairs)
		},
	}
}

func newValidateCmd(configPath *string) *cobra.Command {
	var (
		side, orderType string
		price, qty      float64
		amount          float64
	)
	cmd := &cobra.Command{
		Use:   "validate PAIR",
		Short: "Validate an order against the live exchange rules without placing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath, os.Stderr)
			if err != nil {
				return err
			}
			target, quote := domain.ParseSymbol(args[0])
			req := domain.OrderRequest{
				Target: target,
				Quote:  quote,
				Side:   domain.OrderSide(strings.ToUpper(side)),
				Type:   domain.OrderType(strings.ToUpper(orderType)),
				Price:  price,
				Qty:    qty,
				Amount: amount,
			}

			application := app.New(cfg, logger)
			defer application.Close()
			application.SetOutput(cmd.OutOrStdout())
			return application.Validate(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVar(&side, "side", "BUY", "BUY or SELL")
	cmd.Flags().StringVar(&orderType, "type", "LIMIT", "LIMIT, MARKET or STOP_LIMIT")
	cmd.Flags().Float64Var(&price, "price", 0, "order price")
	cmd.Flags().Float64Var(&qty, "qty", 0, "order quantity")
	cmd.Flags().Float64Var(&amount, "amount", 0, "quote amount for MARKET buys")
	return cmd
}

func newErrcodeCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "errcode CODE",
		Short: "Describe a Coinone API error code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("error code must be an integer: %q", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(coinone.DescribeError(code, lang))
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "message language (en or kr)")
	return cmd
}

// setup loads and validates the configuration and builds a JSON logger at
// the configured level writing to w.
func setup(configPath string, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	logger := newLogger(cfg.LogLevel, w)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
