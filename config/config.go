// Package config loads and validates the strategy configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/signals"
	"github.com/rustyeddy/deltabar/windows"
)

// Config is the complete strategy configuration.
type Config struct {
	Instrument InstrumentConfig `json:"instrument" yaml:"instrument"`
	Signals    SignalsConfig    `json:"signals" yaml:"signals"`
	Stops      StopsConfig      `json:"stops" yaml:"stops"`
	Risk       RiskConfig       `json:"risk" yaml:"risk"`
	Windows    []WindowConfig   `json:"windows,omitempty" yaml:"windows,omitempty"`
	Engine     EngineConfig     `json:"engine" yaml:"engine"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

// InstrumentConfig describes the traded contract.
type InstrumentConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	TickSize   float64 `json:"tick_size" yaml:"tick_size"`
	PointValue float64 `json:"point_value" yaml:"point_value"`
	Timezone   string  `json:"timezone" yaml:"timezone"` // exchange zone, default America/New_York
}

// SignalsConfig holds the voting thresholds and the calculator set.
type SignalsConfig struct {
	EntryVotes  int                `json:"entry_votes" yaml:"entry_votes"`
	ExitVotes   int                `json:"exit_votes" yaml:"exit_votes"`
	Calculators []CalculatorConfig `json:"calculators" yaml:"calculators"`
}

// CalculatorConfig configures one signal calculator. Fields that a
// calculator does not use are ignored by it.
type CalculatorConfig struct {
	Name          string  `json:"name" yaml:"name"`
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	Entry         bool    `json:"entry" yaml:"entry"`
	Exit          bool    `json:"exit" yaml:"exit"`
	Threshold     float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	DiffThreshold float64 `json:"diff_threshold,omitempty" yaml:"diff_threshold,omitempty"`
	Lookback      int     `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	ShortWindow   int     `json:"short_window,omitempty" yaml:"short_window,omitempty"`
	LongWindow    int     `json:"long_window,omitempty" yaml:"long_window,omitempty"`
	Smoothing     int     `json:"smoothing,omitempty" yaml:"smoothing,omitempty"`
	ATRPeriod     int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	BandMult      float64 `json:"band_mult,omitempty" yaml:"band_mult,omitempty"`
	Baseline      string  `json:"baseline,omitempty" yaml:"baseline,omitempty"` // "mean" or "median"
}

// StopsConfig configures the trailing stop engine.
type StopsConfig struct {
	ATRPeriod int     `json:"atr_period" yaml:"atr_period"`
	ATRMult   float64 `json:"atr_mult" yaml:"atr_mult"`
	MinTicks  int     `json:"min_ticks" yaml:"min_ticks"`
	MaxTicks  int     `json:"max_ticks" yaml:"max_ticks"`
	Trailing  bool    `json:"trailing" yaml:"trailing"`
}

// RiskConfig configures the daily risk governor.
type RiskConfig struct {
	MaxDailyLoss      float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxOrderQty       int     `json:"max_order_qty" yaml:"max_order_qty"`
	MaxOrdersPerDay   int     `json:"max_orders_per_day" yaml:"max_orders_per_day"`
	MaxExposureMult   float64 `json:"max_exposure_mult,omitempty" yaml:"max_exposure_mult,omitempty"`
	MarginPerContract float64 `json:"margin_per_contract,omitempty" yaml:"margin_per_contract,omitempty"`
	AccountBalance    float64 `json:"account_balance,omitempty" yaml:"account_balance,omitempty"`
}

// WindowConfig is one daily trading window in exchange-local HHMM.
type WindowConfig struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Start   string `json:"start" yaml:"start"` // "1800"
	End     string `json:"end" yaml:"end"`     // "0400", may wrap midnight
}

// EngineConfig configures the order-intent state machine.
type EngineConfig struct {
	Qty             int    `json:"qty" yaml:"qty"`
	MaxStack        int    `json:"max_stack" yaml:"max_stack"`
	AllowReversal   bool   `json:"allow_reversal" yaml:"allow_reversal"`
	MinTPTicks      int    `json:"min_tp_ticks" yaml:"min_tp_ticks"`
	TPOffsetTicks   int    `json:"tp_offset_ticks" yaml:"tp_offset_ticks"`
	MinOrderSpacing string `json:"min_order_spacing,omitempty" yaml:"min_order_spacing,omitempty"` // e.g. "1s"
	FillTimeout     string `json:"fill_timeout,omitempty" yaml:"fill_timeout,omitempty"`           // e.g. "30s"
	SignalCooldown  string `json:"signal_cooldown,omitempty" yaml:"signal_cooldown,omitempty"`     // e.g. "2m", empty disables
}

// JournalConfig configures daily summary persistence.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv" or "sqlite"
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	SummaryFile string `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen,omitempty" yaml:"listen,omitempty"` // e.g. ":9090"
}

// Default returns a ready-to-edit configuration for a micro index
// future trading the overnight and morning windows.
func Default() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			Symbol:     "MNQ",
			TickSize:   0.25,
			PointValue: 2.0,
			Timezone:   "America/New_York",
		},
		Signals: SignalsConfig{
			EntryVotes: 3,
			ExitVotes:  2,
			Calculators: []CalculatorConfig{
				{Name: "rvol", Enabled: true, Entry: true, Threshold: 1.0, ShortWindow: 5, LongWindow: 20, Smoothing: 3, ATRPeriod: 14},
				{Name: "delta_strength", Enabled: true, Entry: true, Exit: true, Threshold: 1.5, Lookback: 20, Baseline: "median"},
				{Name: "delta_price", Enabled: true, Entry: true, Threshold: 1.2, Lookback: 20, Baseline: "mean"},
				{Name: "delta_volume", Enabled: true, Entry: true, Exit: true, Threshold: 1.2, Lookback: 20, Baseline: "mean"},
				{Name: "atr_ma", Enabled: true, Entry: true, Lookback: 20, ATRPeriod: 14, BandMult: 1.0},
				{Name: "divergence", Enabled: true, Exit: true, Threshold: 0.5, Lookback: 20, Baseline: "mean"},
			},
		},
		Stops: StopsConfig{
			ATRPeriod: 14,
			ATRMult:   1.0,
			MinTicks:  8,
			MaxTicks:  80,
			Trailing:  true,
		},
		Risk: RiskConfig{
			MaxDailyLoss:    1000,
			MaxOrderQty:     3,
			MaxOrdersPerDay: 40,
		},
		Windows: []WindowConfig{
			{Name: "overnight", Enabled: true, Start: "1800", End: "0400"},
			{Name: "morning", Enabled: true, Start: "0400", End: "0930"},
		},
		Engine: EngineConfig{
			Qty:             1,
			MaxStack:        3,
			AllowReversal:   true,
			MinTPTicks:      8,
			TPOffsetTicks:   20,
			MinOrderSpacing: "1s",
			FillTimeout:     "30s",
			SignalCooldown:  "2m",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "deltabar.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
	}
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON, then validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Instrument.Symbol == "" {
		return fmt.Errorf("instrument.symbol is required")
	}
	if c.Instrument.TickSize <= 0 {
		return fmt.Errorf("instrument.tick_size must be positive")
	}
	if c.Instrument.PointValue <= 0 {
		return fmt.Errorf("instrument.point_value must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("instrument.timezone: %w", err)
	}

	if c.Signals.EntryVotes < 1 {
		return fmt.Errorf("signals.entry_votes must be at least 1")
	}
	if c.Signals.ExitVotes < 1 {
		return fmt.Errorf("signals.exit_votes must be at least 1")
	}
	known := signals.Names()
	for i, cc := range c.Signals.Calculators {
		if !contains(known, cc.Name) {
			return fmt.Errorf("signals.calculators[%d]: unknown calculator %q", i, cc.Name)
		}
		switch cc.Baseline {
		case "", "mean", "median":
		default:
			return fmt.Errorf("signals.calculators[%d]: baseline must be mean or median, got %q", i, cc.Baseline)
		}
	}

	if c.Stops.ATRMult <= 0 {
		return fmt.Errorf("stops.atr_mult must be positive")
	}
	if c.Stops.MinTicks <= 0 {
		return fmt.Errorf("stops.min_ticks must be positive")
	}
	if c.Stops.MaxTicks < c.Stops.MinTicks {
		return fmt.Errorf("stops.max_ticks must be at least min_ticks")
	}

	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive")
	}
	if c.Risk.MaxOrderQty <= 0 {
		return fmt.Errorf("risk.max_order_qty must be positive")
	}

	if len(c.Windows) > 3 {
		return fmt.Errorf("at most 3 trading windows are supported, got %d", len(c.Windows))
	}
	for i, w := range c.Windows {
		if _, err := windows.ParseHHMM(w.Start); err != nil {
			return fmt.Errorf("windows[%d].start: %w", i, err)
		}
		if _, err := windows.ParseHHMM(w.End); err != nil {
			return fmt.Errorf("windows[%d].end: %w", i, err)
		}
	}

	if c.Engine.Qty <= 0 {
		return fmt.Errorf("engine.qty must be positive")
	}
	if c.Engine.Qty > c.Risk.MaxOrderQty {
		return fmt.Errorf("engine.qty %d exceeds risk.max_order_qty %d", c.Engine.Qty, c.Risk.MaxOrderQty)
	}
	if c.Engine.MaxStack < 1 {
		return fmt.Errorf("engine.max_stack must be at least 1")
	}
	if _, err := c.Engine.OrderSpacing(); err != nil {
		return fmt.Errorf("engine.min_order_spacing: %w", err)
	}
	if _, err := c.Engine.FillTimeoutDuration(); err != nil {
		return fmt.Errorf("engine.fill_timeout: %w", err)
	}
	if _, err := c.Engine.CooldownDuration(); err != nil {
		return fmt.Errorf("engine.signal_cooldown: %w", err)
	}

	switch c.Journal.Type {
	case "", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.type must be csv or sqlite, got %q", c.Journal.Type)
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required for sqlite journal")
	}
	if c.Journal.Type == "csv" && c.Journal.SummaryFile == "" {
		return fmt.Errorf("journal.summary_file is required for csv journal")
	}

	return nil
}

// Location resolves the exchange timezone, defaulting to New York.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Instrument.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	return time.LoadLocation(tz)
}

// TradingWindows converts the HHMM window entries to minute-of-day
// windows. Call Validate first; parse errors here are reported anyway.
func (c *Config) TradingWindows() ([]windows.Window, error) {
	out := make([]windows.Window, 0, len(c.Windows))
	for i, w := range c.Windows {
		start, err := windows.ParseHHMM(w.Start)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].start: %w", i, err)
		}
		end, err := windows.ParseHHMM(w.End)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].end: %w", i, err)
		}
		out = append(out, windows.Window{Name: w.Name, Enabled: w.Enabled, Start: start, End: end})
	}
	return out, nil
}

// Members instantiates the enabled calculators as voting members.
func (c *Config) Members() ([]signals.Member, error) {
	out := make([]signals.Member, 0, len(c.Signals.Calculators))
	for _, cc := range c.Signals.Calculators {
		if !cc.Enabled {
			continue
		}
		calc, err := signals.New(cc.Name, cc.Params())
		if err != nil {
			return nil, fmt.Errorf("calculator %q: %w", cc.Name, err)
		}
		out = append(out, signals.Member{Calc: calc, Entry: cc.Entry, Exit: cc.Exit})
	}
	return out, nil
}

// OrderSpacing parses the minimum order spacing, defaulting to 1s.
func (e EngineConfig) OrderSpacing() (time.Duration, error) {
	if e.MinOrderSpacing == "" {
		return time.Second, nil
	}
	return time.ParseDuration(e.MinOrderSpacing)
}

// FillTimeoutDuration parses the fill latch timeout, defaulting to 30s.
func (e EngineConfig) FillTimeoutDuration() (time.Duration, error) {
	if e.FillTimeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(e.FillTimeout)
}

// CooldownDuration parses the per-side signal cooldown; empty disables.
func (e EngineConfig) CooldownDuration() (time.Duration, error) {
	if e.SignalCooldown == "" {
		return 0, nil
	}
	return time.ParseDuration(e.SignalCooldown)
}

// Params converts a calculator entry to signal parameters.
func (cc CalculatorConfig) Params() signals.Params {
	baseline := indicators.BaselineMean
	if cc.Baseline == "median" {
		baseline = indicators.BaselineMedian
	}
	return signals.Params{
		Threshold:     cc.Threshold,
		DiffThreshold: cc.DiffThreshold,
		Lookback:      cc.Lookback,
		ShortWindow:   cc.ShortWindow,
		LongWindow:    cc.LongWindow,
		Smoothing:     cc.Smoothing,
		ATRPeriod:     cc.ATRPeriod,
		BandMult:      cc.BandMult,
		Baseline:      baseline,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
