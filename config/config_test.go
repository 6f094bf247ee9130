package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "MNQ", cfg.Instrument.Symbol)
	assert.Equal(t, 0.25, cfg.Instrument.TickSize)
	assert.Equal(t, 3, cfg.Signals.EntryVotes)
	assert.Len(t, cfg.Signals.Calculators, 6)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	mod := func(f func(*Config)) *Config {
		cfg := Default()
		f(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:   "valid config",
			config: Default(),
		},
		{
			name:    "missing symbol",
			config:  mod(func(c *Config) { c.Instrument.Symbol = "" }),
			wantErr: "instrument.symbol is required",
		},
		{
			name:    "bad tick size",
			config:  mod(func(c *Config) { c.Instrument.TickSize = 0 }),
			wantErr: "instrument.tick_size must be positive",
		},
		{
			name:    "bad timezone",
			config:  mod(func(c *Config) { c.Instrument.Timezone = "Mars/Olympus" }),
			wantErr: "instrument.timezone",
		},
		{
			name:    "zero entry votes",
			config:  mod(func(c *Config) { c.Signals.EntryVotes = 0 }),
			wantErr: "signals.entry_votes must be at least 1",
		},
		{
			name:    "unknown calculator",
			config:  mod(func(c *Config) { c.Signals.Calculators[0].Name = "astrology" }),
			wantErr: `unknown calculator "astrology"`,
		},
		{
			name:    "bad baseline",
			config:  mod(func(c *Config) { c.Signals.Calculators[1].Baseline = "mode" }),
			wantErr: "baseline must be mean or median",
		},
		{
			name:    "stop cap below floor",
			config:  mod(func(c *Config) { c.Stops.MaxTicks = c.Stops.MinTicks - 1 }),
			wantErr: "stops.max_ticks must be at least min_ticks",
		},
		{
			name:    "zero daily loss cap",
			config:  mod(func(c *Config) { c.Risk.MaxDailyLoss = 0 }),
			wantErr: "risk.max_daily_loss must be positive",
		},
		{
			name: "too many windows",
			config: mod(func(c *Config) {
				c.Windows = append(c.Windows,
					WindowConfig{Name: "a", Start: "0000", End: "0100"},
					WindowConfig{Name: "b", Start: "0100", End: "0200"})
			}),
			wantErr: "at most 3 trading windows",
		},
		{
			name:    "bad window clock",
			config:  mod(func(c *Config) { c.Windows[0].Start = "25:00" }),
			wantErr: "windows[0].start",
		},
		{
			name:    "qty over max order size",
			config:  mod(func(c *Config) { c.Engine.Qty = c.Risk.MaxOrderQty + 1 }),
			wantErr: "exceeds risk.max_order_qty",
		},
		{
			name:    "bad spacing duration",
			config:  mod(func(c *Config) { c.Engine.MinOrderSpacing = "soon" }),
			wantErr: "engine.min_order_spacing",
		},
		{
			name:    "bad cooldown duration",
			config:  mod(func(c *Config) { c.Engine.SignalCooldown = "whenever" }),
			wantErr: "engine.signal_cooldown",
		},
		{
			name:    "sqlite journal without path",
			config:  mod(func(c *Config) { c.Journal.DBPath = "" }),
			wantErr: "journal.db_path is required",
		},
		{
			name:    "unknown journal type",
			config:  mod(func(c *Config) { c.Journal.Type = "parquet" }),
			wantErr: "journal.type must be csv or sqlite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")

	cfg := Default()
	cfg.Instrument.Symbol = "MES"
	cfg.Engine.MaxStack = 2
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MES", loaded.Instrument.Symbol)
	assert.Equal(t, 2, loaded.Engine.MaxStack)
	assert.Equal(t, cfg.Signals.EntryVotes, loaded.Signals.EntryVotes)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.json")

	require.NoError(t, Default().SaveToFile(path))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MNQ", loaded.Instrument.Symbol)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := Default()
	cfg.Risk.MaxDailyLoss = 0
	require.NoError(t, cfg.SaveToFile(path))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTradingWindows(t *testing.T) {
	cfg := Default()
	ws, err := cfg.TradingWindows()
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, 18*60, ws[0].Start)
	assert.Equal(t, 4*60, ws[0].End)
	assert.True(t, ws[0].Enabled)
}

func TestMembers(t *testing.T) {
	cfg := Default()
	cfg.Signals.Calculators[0].Enabled = false

	members, err := cfg.Members()
	require.NoError(t, err)
	assert.Len(t, members, 5)
	for _, m := range members {
		assert.NotNil(t, m.Calc)
	}
}

func TestDurationDefaults(t *testing.T) {
	var e EngineConfig
	spacing, err := e.OrderSpacing()
	require.NoError(t, err)
	assert.Equal(t, time.Second, spacing)

	timeout, err := e.FillTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	cooldown, err := e.CooldownDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cooldown)
}
