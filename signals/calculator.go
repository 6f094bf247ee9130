// Package signals implements the directional signal calculators and the
// N-of-M voting aggregator that decides when an entry or exit fires.
package signals

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
)

// Calculator computes a streaming directional signal from closed bars.
// It extends the indicator contract with a directional boolean pair:
// LongOK/ShortOK report whether the calculator currently votes long or
// short. A calculator with insufficient history reports neither.
type Calculator interface {
	// Name returns a stable identifier like "rvol" or "delta_strength".
	Name() string

	// Warmup returns how many bars are needed before votes are meaningful.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether the calculator has enough history to vote.
	Ready() bool

	// LongOK reports a long vote for the current bar.
	LongOK() bool

	// ShortOK reports a short vote for the current bar.
	ShortOK() bool

	// Value returns the calculator's current numeric reading.
	Value() float64
}

// Params carries every tunable a calculator can use. Each constructor
// reads only the fields it needs; zero values fall back to defaults.
type Params struct {
	Threshold     float64             // baseline multiple / strength threshold
	DiffThreshold float64             // RVOL first-difference magnitude floor
	Lookback      int                 // rolling baseline window
	ShortWindow   int                 // RVOL short volume average
	LongWindow    int                 // RVOL long volume average
	Smoothing     int                 // RVOL EMA smoothing period
	ATRPeriod     int                 // ATR length where a calculator uses one
	BandMult      float64             // ATR band multiple for the MA calculator
	Baseline      indicators.Baseline // mean or median baselines (global switch)
}

type factory func(Params) Calculator

var registry = map[string]factory{
	"rvol":           func(p Params) Calculator { return NewRVOL(p) },
	"delta_strength": func(p Params) Calculator { return NewDeltaStrength(p) },
	"delta_price":    func(p Params) Calculator { return NewDeltaPrice(p) },
	"delta_volume":   func(p Params) Calculator { return NewDeltaVolume(p) },
	"atr_ma":         func(p Params) Calculator { return NewATRMA(p) },
	"divergence":     func(p Params) Calculator { return NewDivergence(p) },
}

// New builds a calculator by registry name.
func New(name string, p Params) (Calculator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown signal calculator %q (supported: %v)", name, Names())
	}
	return f(p), nil
}

// Names lists the registered calculator names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
