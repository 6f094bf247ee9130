package market

import "time"

// Bar represents one closed OHLCV bar with its buy/sell volume delta.
// A bar is immutable once it has closed; the forming bar belongs to the
// data feed until it hands us a closed copy.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Delta  VolumeDelta
	Time   time.Time // open time, UTC
}

// Body returns close-open (signed).
func (b Bar) Body() float64 {
	return b.Close - b.Open
}

// Range returns high-low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }
