package signals

import (
	"math"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
)

// RVOL compares the current bar's volume against short- and long-window
// average volumes. Both ratios must clear the threshold for the signal
// to be "on"; direction comes from the sign of the first difference of
// the smoothed, ATR-normalized short ratio, and the difference's
// magnitude must clear its own floor (zero means any movement counts).
type RVOL struct {
	threshold     float64
	diffThreshold float64

	shortAvg *rollingVolume
	longAvg  *rollingVolume
	smooth   *indicators.EMA
	atr      *indicators.ATR

	rvolShort float64
	rvolLong  float64
	diff      float64
	haveDiff  bool
	prevNorm  float64
	havePrev  bool
	updates   int
}

func NewRVOL(p Params) *RVOL {
	shortW := p.ShortWindow
	if shortW <= 0 {
		shortW = 5
	}
	longW := p.LongWindow
	if longW <= shortW {
		longW = shortW * 4
	}
	smoothing := p.Smoothing
	if smoothing <= 0 {
		smoothing = 3
	}
	atrPeriod := p.ATRPeriod
	if atrPeriod <= 0 {
		atrPeriod = 14
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 1.0
	}
	return &RVOL{
		threshold:     threshold,
		diffThreshold: p.DiffThreshold,
		shortAvg:      newRollingVolume(shortW),
		longAvg:       newRollingVolume(longW),
		smooth:        indicators.NewEMA(smoothing),
		atr:           indicators.NewATR(atrPeriod),
	}
}

func (r *RVOL) Name() string { return "rvol" }

func (r *RVOL) Warmup() int { return r.longAvg.size + 1 }

func (r *RVOL) Reset() {
	r.shortAvg.reset()
	r.longAvg.reset()
	r.smooth.Reset()
	r.atr.Reset()
	r.rvolShort, r.rvolLong, r.diff, r.prevNorm = 0, 0, 0, 0
	r.haveDiff, r.havePrev = false, false
	r.updates = 0
}

func (r *RVOL) Update(b market.Bar) {
	r.updates++
	r.atr.Update(b)

	// Ratios use the averages of *prior* bars so the current bar's
	// volume does not dilute its own baseline.
	if r.shortAvg.full() && r.longAvg.full() {
		sa := r.shortAvg.mean()
		la := r.longAvg.mean()
		if sa > 0 && la > 0 {
			r.rvolShort = b.Volume / sa
			r.rvolLong = b.Volume / la

			r.smooth.UpdateValue(r.rvolShort)
			norm := r.smooth.Value()
			if r.atr.Ready() && r.atr.Value() > 0 {
				norm /= r.atr.Value()
			}
			if r.smooth.Ready() {
				if r.havePrev {
					r.diff = norm - r.prevNorm
					r.haveDiff = true
				}
				r.prevNorm = norm
				r.havePrev = true
			}
		}
	}

	r.shortAvg.push(b.Volume)
	r.longAvg.push(b.Volume)
}

func (r *RVOL) Ready() bool {
	return r.longAvg.full() && r.haveDiff
}

// volumeOK reports whether both relative-volume ratios clear the threshold.
func (r *RVOL) volumeOK() bool {
	return r.rvolShort > r.threshold && r.rvolLong > r.threshold
}

func (r *RVOL) LongOK() bool {
	return r.Ready() && r.volumeOK() && r.diff > r.diffThreshold
}

func (r *RVOL) ShortOK() bool {
	return r.Ready() && r.volumeOK() && r.diff < -r.diffThreshold
}

func (r *RVOL) Value() float64 { return r.rvolShort }

// RatioShort and RatioLong expose the raw ratios for diagnostics.
func (r *RVOL) RatioShort() float64 { return r.rvolShort }
func (r *RVOL) RatioLong() float64  { return r.rvolLong }

// rollingVolume is a fixed-size running average of bar volumes.
type rollingVolume struct {
	size   int
	values []float64
	sum    float64
}

func newRollingVolume(size int) *rollingVolume {
	return &rollingVolume{size: size}
}

func (v *rollingVolume) push(x float64) {
	if math.IsNaN(x) || x < 0 {
		return
	}
	v.values = append(v.values, x)
	v.sum += x
	if len(v.values) > v.size {
		v.sum -= v.values[0]
		v.values = v.values[1:]
	}
}

func (v *rollingVolume) full() bool { return len(v.values) >= v.size }

func (v *rollingVolume) mean() float64 {
	if len(v.values) == 0 {
		return 0
	}
	return v.sum / float64(len(v.values))
}

func (v *rollingVolume) reset() {
	v.values = v.values[:0]
	v.sum = 0
}
