package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/deltabar/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage strategy configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  deltabar config init -o strategy.yaml
  deltabar config validate -f strategy.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  deltabar config init -o strategy.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  deltabar config validate -f strategy.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "strategy.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  deltabar run --config %s --bars feed.csv\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	enabled := 0
	for _, cc := range cfg.Signals.Calculators {
		if cc.Enabled {
			enabled++
		}
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Instrument: %s (tick %.4g, point value %.4g)\n",
		cfg.Instrument.Symbol, cfg.Instrument.TickSize, cfg.Instrument.PointValue)
	fmt.Printf("  Signals: %d enabled, entry %d votes, exit %d votes\n",
		enabled, cfg.Signals.EntryVotes, cfg.Signals.ExitVotes)
	fmt.Printf("  Risk: daily loss cap %.2f, max %d orders/day\n",
		cfg.Risk.MaxDailyLoss, cfg.Risk.MaxOrdersPerDay)
	fmt.Printf("  Windows: %d configured\n", len(cfg.Windows))
	return nil
}
