package market

import "time"

// Tick is a single trade/quote event used for intra-bar stop and target
// monitoring.
type Tick struct {
	Price float64
	Bid   float64
	Ask   float64
	Time  time.Time
}

// Mid returns the quote midpoint, falling back to the last trade price
// when one side of the book is missing.
func (t Tick) Mid() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}
	return t.Price
}

// Spread returns ask-bid, or zero when quotes are missing.
func (t Tick) Spread() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return t.Ask - t.Bid
	}
	return 0
}
