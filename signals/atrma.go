package signals

import (
	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
)

// ATRMA votes on closes breaking out of an ATR-width band around an
// exponential moving average. Close above EMA + ATR*mult votes long,
// below EMA - ATR*mult votes short; inside the band it stays neutral.
type ATRMA struct {
	bandMult float64
	ema      *indicators.EMA
	atr      *indicators.ATR

	dist float64 // close - ema
	long bool
	short bool
}

func NewATRMA(p Params) *ATRMA {
	period := p.Lookback
	if period <= 0 {
		period = 20
	}
	atrPeriod := p.ATRPeriod
	if atrPeriod <= 0 {
		atrPeriod = 14
	}
	mult := p.BandMult
	if mult <= 0 {
		mult = 1.0
	}
	return &ATRMA{
		bandMult: mult,
		ema:      indicators.NewEMA(period),
		atr:      indicators.NewATR(atrPeriod),
	}
}

func (a *ATRMA) Name() string { return "atr_ma" }

func (a *ATRMA) Warmup() int {
	if w := a.atr.Warmup(); w > a.ema.Warmup() {
		return w
	}
	return a.ema.Warmup()
}

func (a *ATRMA) Reset() {
	a.ema.Reset()
	a.atr.Reset()
	a.dist = 0
	a.long, a.short = false, false
}

func (a *ATRMA) Update(b market.Bar) {
	a.ema.Update(b)
	a.atr.Update(b)
	a.long, a.short = false, false
	a.dist = 0

	if !a.ema.Ready() || !a.atr.Ready() {
		return
	}
	a.dist = b.Close - a.ema.Value()
	band := a.atr.Value() * a.bandMult
	a.long = a.dist > band
	a.short = a.dist < -band
}

func (a *ATRMA) Ready() bool    { return a.ema.Ready() && a.atr.Ready() }
func (a *ATRMA) LongOK() bool   { return a.long }
func (a *ATRMA) ShortOK() bool  { return a.short }
func (a *ATRMA) Value() float64 { return a.dist }
