package signals

import (
	"math"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
)

// DeltaStrength fires when the magnitude of the current bar's volume
// delta exceeds its rolling baseline by a threshold multiple; direction
// is the sign of the delta.
type DeltaStrength struct {
	threshold float64
	baseline  indicators.Baseline
	window    *indicators.Rolling

	delta  float64
	strong bool
}

func NewDeltaStrength(p Params) *DeltaStrength {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 1.5
	}
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	return &DeltaStrength{
		threshold: threshold,
		baseline:  p.Baseline,
		window:    indicators.NewRolling(lookback),
	}
}

func (d *DeltaStrength) Name() string { return "delta_strength" }
func (d *DeltaStrength) Warmup() int  { return d.window.Size() + 1 }

func (d *DeltaStrength) Reset() {
	d.window.Reset()
	d.delta = 0
	d.strong = false
}

func (d *DeltaStrength) Update(b market.Bar) {
	d.delta = b.Delta.Value
	d.strong = false

	if d.window.Full() {
		base := d.window.Baseline(d.baseline)
		if base > 0 {
			d.strong = math.Abs(d.delta) > base*d.threshold
		}
	}
	d.window.Push(math.Abs(d.delta))
}

func (d *DeltaStrength) Ready() bool    { return d.window.Full() }
func (d *DeltaStrength) LongOK() bool   { return d.Ready() && d.strong && d.delta > 0 }
func (d *DeltaStrength) ShortOK() bool  { return d.Ready() && d.strong && d.delta < 0 }
func (d *DeltaStrength) Value() float64 { return d.delta }

// DeltaPrice relates the bar's price move to its volume delta: a move
// that is large relative to the delta it took to produce it suggests
// thin resistance in that direction. Fires when the ratio beats its
// rolling baseline by the threshold multiple; direction follows the
// price move.
type DeltaPrice struct {
	threshold float64
	baseline  indicators.Baseline
	window    *indicators.Rolling

	ratio float64
	body  float64
	fired bool
}

func NewDeltaPrice(p Params) *DeltaPrice {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 1.5
	}
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	return &DeltaPrice{
		threshold: threshold,
		baseline:  p.Baseline,
		window:    indicators.NewRolling(lookback),
	}
}

func (d *DeltaPrice) Name() string { return "delta_price" }
func (d *DeltaPrice) Warmup() int  { return d.window.Size() + 1 }

func (d *DeltaPrice) Reset() {
	d.window.Reset()
	d.ratio, d.body = 0, 0
	d.fired = false
}

func (d *DeltaPrice) Update(b market.Bar) {
	d.body = b.Body()
	d.fired = false

	delta := math.Abs(b.Delta.Value)
	if delta == 0 {
		// no order-flow information: neutral, keep the baseline as-is
		d.ratio = 0
		return
	}
	d.ratio = math.Abs(d.body) / delta

	if d.window.Full() {
		base := d.window.Baseline(d.baseline)
		if base > 0 {
			d.fired = d.ratio > base*d.threshold
		}
	}
	d.window.Push(d.ratio)
}

func (d *DeltaPrice) Ready() bool    { return d.window.Full() }
func (d *DeltaPrice) LongOK() bool   { return d.Ready() && d.fired && d.body > 0 }
func (d *DeltaPrice) ShortOK() bool  { return d.Ready() && d.fired && d.body < 0 }
func (d *DeltaPrice) Value() float64 { return d.ratio }

// DeltaVolume measures how one-sided a bar's volume was: delta/volume
// in [-1, +1]. Fires when the magnitude beats its rolling baseline by
// the threshold multiple; direction is the sign of the delta.
type DeltaVolume struct {
	threshold float64
	baseline  indicators.Baseline
	window    *indicators.Rolling

	ratio float64
	fired bool
}

func NewDeltaVolume(p Params) *DeltaVolume {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 1.5
	}
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	return &DeltaVolume{
		threshold: threshold,
		baseline:  p.Baseline,
		window:    indicators.NewRolling(lookback),
	}
}

func (d *DeltaVolume) Name() string { return "delta_volume" }
func (d *DeltaVolume) Warmup() int  { return d.window.Size() + 1 }

func (d *DeltaVolume) Reset() {
	d.window.Reset()
	d.ratio = 0
	d.fired = false
}

func (d *DeltaVolume) Update(b market.Bar) {
	d.fired = false
	if b.Volume <= 0 {
		d.ratio = 0
		return
	}
	d.ratio = b.Delta.Value / b.Volume

	if d.window.Full() {
		base := d.window.Baseline(d.baseline)
		if base > 0 {
			d.fired = math.Abs(d.ratio) > base*d.threshold
		}
	}
	d.window.Push(math.Abs(d.ratio))
}

func (d *DeltaVolume) Ready() bool    { return d.window.Full() }
func (d *DeltaVolume) LongOK() bool   { return d.Ready() && d.fired && d.ratio > 0 }
func (d *DeltaVolume) ShortOK() bool  { return d.Ready() && d.fired && d.ratio < 0 }
func (d *DeltaVolume) Value() float64 { return d.ratio }
