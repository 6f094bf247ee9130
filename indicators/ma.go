package indicators

import (
	"fmt"

	"github.com/rustyeddy/deltabar/market"
)

// SMA is a streaming simple moving average over bar closes.
type SMA struct {
	period int
	window []float64
	sum    float64
}

func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (m *SMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }
func (m *SMA) Warmup() int  { return m.period }

func (m *SMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *SMA) Update(b market.Bar) {
	m.window = append(m.window, b.Close)
	m.sum += b.Close
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *SMA) Ready() bool { return len(m.window) >= m.period }

func (m *SMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.window))
}

// EMA is a streaming exponential moving average over bar closes, seeded
// with an SMA of the first period values.
type EMA struct {
	period int
	mult   float64
	ema    float64
	seed   float64
	count  int
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		mult:   2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *EMA) Warmup() int  { return e.period }

func (e *EMA) Reset() {
	e.ema = 0
	e.seed = 0
	e.count = 0
}

func (e *EMA) Update(b market.Bar) {
	e.UpdateValue(b.Close)
}

// UpdateValue feeds a raw value instead of a bar close; the RVOL
// calculator smooths volume ratios through an EMA this way.
func (e *EMA) UpdateValue(v float64) {
	e.count++
	if e.count < e.period {
		e.seed += v
		return
	}
	if e.count == e.period {
		e.seed += v
		e.ema = e.seed / float64(e.period)
		return
	}
	e.ema = (v-e.ema)*e.mult + e.ema
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
