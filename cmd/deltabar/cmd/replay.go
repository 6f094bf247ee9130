package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/deltabar/config"
	"github.com/rustyeddy/deltabar/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay historical bars from CSV",
	Long: `Replay a CSV bar file through the strategy and print the result.

Unlike run, replay keeps everything in memory: no journal and no
metrics endpoint. Use it to iterate on calculator settings quickly.

Examples:
  deltabar replay --config strategy.yaml --bars data/mnq-june.csv`,
	RunE: runReplay,
}

var (
	replayConfigPath string
	replayBarsPath   string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfigPath, "config", "f", "", "path to config file (required)")
	replayCmd.Flags().StringVarP(&replayBarsPath, "bars", "b", "", "CSV file of bars (time,open,high,low,close,volume[,delta]) (required)")
	replayCmd.MarkFlagRequired("config")
	replayCmd.MarkFlagRequired("bars")
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.LoadFromFile(replayConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	r := replay.NewRunner(s.eng, s.mbox, cfg.Instrument.PointValue, log)
	res, err := r.CSV(context.Background(), replayBarsPath)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	cur := s.gov.Current()
	fmt.Printf("Replay complete: %s\n", cfg.Instrument.Symbol)
	fmt.Printf("  Bars:         %d\n", res.Bars)
	fmt.Printf("  Fills:        %d\n", res.Fills)
	fmt.Printf("  Closes:       %d\n", res.Closes)
	fmt.Printf("  Realized:     %.2f\n", res.RealizedPnL)
	fmt.Printf("  Max drawdown: %.2f\n", cur.MaxDrawdown)
	fmt.Printf("  Open stack:   %d\n", s.eng.Stack())
	if cur.Halted {
		fmt.Printf("  Halted:       %s\n", cur.HaltReason)
	}
	return nil
}
