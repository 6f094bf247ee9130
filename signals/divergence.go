package signals

import (
	"math"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
)

// Divergence looks for disagreement between the bar's price direction
// and its volume delta within the same bar: price up on net selling
// reads as a fading rally (short vote), price down on net buying as
// absorbed selling (long vote). Both magnitudes must beat a fraction of
// their rolling baselines so flat bars and dust deltas stay neutral.
type Divergence struct {
	threshold   float64
	baseline    indicators.Baseline
	bodyWindow  *indicators.Rolling
	deltaWindow *indicators.Rolling

	body  float64
	delta float64
	long  bool
	short bool
}

func NewDivergence(p Params) *Divergence {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	return &Divergence{
		threshold:   threshold,
		baseline:    p.Baseline,
		bodyWindow:  indicators.NewRolling(lookback),
		deltaWindow: indicators.NewRolling(lookback),
	}
}

func (d *Divergence) Name() string { return "divergence" }
func (d *Divergence) Warmup() int  { return d.bodyWindow.Size() + 1 }

func (d *Divergence) Reset() {
	d.bodyWindow.Reset()
	d.deltaWindow.Reset()
	d.body, d.delta = 0, 0
	d.long, d.short = false, false
}

func (d *Divergence) Update(b market.Bar) {
	d.body = b.Body()
	d.delta = b.Delta.Value
	d.long, d.short = false, false

	if d.bodyWindow.Full() && d.deltaWindow.Full() {
		bodyBase := d.bodyWindow.Baseline(d.baseline)
		deltaBase := d.deltaWindow.Baseline(d.baseline)
		bodyBig := bodyBase > 0 && math.Abs(d.body) > bodyBase*d.threshold
		deltaBig := deltaBase > 0 && math.Abs(d.delta) > deltaBase*d.threshold

		if bodyBig && deltaBig {
			// strict sign disagreement; a zero on either side is a tie
			// and stays neutral
			d.short = d.body > 0 && d.delta < 0
			d.long = d.body < 0 && d.delta > 0
		}
	}

	d.bodyWindow.Push(math.Abs(d.body))
	d.deltaWindow.Push(math.Abs(d.delta))
}

func (d *Divergence) Ready() bool   { return d.bodyWindow.Full() && d.deltaWindow.Full() }
func (d *Divergence) LongOK() bool  { return d.long }
func (d *Divergence) ShortOK() bool { return d.short }

// Value is the signed delta of the divergent bar, zero when neutral.
func (d *Divergence) Value() float64 {
	if d.long || d.short {
		return d.delta
	}
	return 0
}
