package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deltabar",
	Short: "A bar-driven futures strategy engine with volume-delta signals",
	Long: `Deltabar is a bar-driven trading decision engine for index futures.

It provides:
  - Six volume-delta and volatility signal calculators with N-of-M voting
  - Session high/low tracking for take-profit selection
  - ATR trailing stops with tick floor and cap
  - Daily loss caps, order ceilings, and trading-window gating
  - Deterministic CSV replay for offline evaluation

Complete documentation is available at https://github.com/rustyeddy/deltabar`,
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// newLogger builds the process logger from the --log-level flag.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
