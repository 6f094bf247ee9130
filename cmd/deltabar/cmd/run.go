package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/deltabar/config"
	"github.com/rustyeddy/deltabar/journal"
	"github.com/rustyeddy/deltabar/replay"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the strategy over a bar feed with journaling and metrics",
	Long: `Run the strategy over a bar feed file with the journal and the
Prometheus endpoint enabled.

Environment variables are loaded from .env if present:
  DELTABAR_DB_PATH         overrides journal.db_path
  DELTABAR_METRICS_LISTEN  overrides metrics.listen

Example:
  deltabar run --config strategy.yaml --bars feed.csv`,
	RunE: runRun,
}

var (
	runConfigPath string
	runBarsPath   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runBarsPath, "bars", "b", "", "CSV file of bars (time,open,high,low,close,volume[,delta]) (required)")
	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("bars")
}

func runRun(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	log := newLogger()

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := os.Getenv("DELTABAR_DB_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("DELTABAR_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath, cfg.Journal.SummaryFile)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	s, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			log.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", "err", err)
			}
		}()
	}

	log.Info("starting strategy run",
		"instrument", cfg.Instrument.Symbol,
		"bars", runBarsPath,
		"calculators", len(cfg.Signals.Calculators),
		"entry_votes", cfg.Signals.EntryVotes,
		"exit_votes", cfg.Signals.ExitVotes)

	r := replay.NewRunner(s.eng, s.mbox, cfg.Instrument.PointValue, log)
	res, err := r.CSV(ctx, runBarsPath)
	if err != nil {
		return fmt.Errorf("bar feed: %w", err)
	}

	s.flushJournal(j, log)

	fmt.Printf("Run complete: %s\n", cfg.Instrument.Symbol)
	fmt.Printf("  Bars:     %d\n", res.Bars)
	fmt.Printf("  Fills:    %d\n", res.Fills)
	fmt.Printf("  Closes:   %d\n", res.Closes)
	fmt.Printf("  Realized: %.2f\n", res.RealizedPnL)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	return nil
}
