package sessions

import (
	"math"
	"sort"

	"github.com/rustyeddy/deltabar/market"
)

// TakeProfit is a selected target level and where it came from.
type TakeProfit struct {
	Price  float64
	Source string // session type name, "history", or "offset"
}

type candidate struct {
	price  float64
	source string
}

// SelectTakeProfit picks the take-profit level for a new position:
// session highs for longs, lows for shorts, topped up from the most
// recent archived sessions when fewer than three current levels exist.
// The nearest level strictly beyond price wins, but a level closer
// than minTicks*tickSize is skipped for the next-nearest; when no
// level qualifies at all the fixed-offset alternate target is used.
// The nearest session extreme is often too close to be worth the
// costs, hence the asymmetric fallback.
func (t *Tracker) SelectTakeProfit(price float64, side market.Side, minTicks, offsetTicks int, tickSize float64) TakeProfit {
	minDist := float64(minTicks) * tickSize
	offset := float64(offsetTicks) * tickSize

	var cands []candidate
	for i := range t.sessions {
		s := t.sessions[i]
		if !s.Valid {
			continue
		}
		cands = append(cands, candidate{price: levelFor(s, side), source: s.Type.String()})
	}

	if len(cands) < minTPLevels {
		hist := t.history
		if len(hist) > historyTPLookups {
			hist = hist[len(hist)-historyTPLookups:]
		}
		for _, a := range hist {
			cands = append(cands, candidate{price: levelFor(a.Session, side), source: "history"})
		}
	}

	// only levels strictly beyond price qualify
	beyond := cands[:0:0]
	for _, c := range cands {
		if (side == market.Long && c.price > price) || (side == market.Short && c.price < price) {
			beyond = append(beyond, c)
		}
	}

	sort.Slice(beyond, func(i, j int) bool {
		return math.Abs(beyond[i].price-price) < math.Abs(beyond[j].price-price)
	})

	for _, c := range beyond {
		if math.Abs(c.price-price) >= minDist {
			return TakeProfit{Price: c.price, Source: c.source}
		}
	}

	if side == market.Long {
		return TakeProfit{Price: price + offset, Source: "offset"}
	}
	return TakeProfit{Price: price - offset, Source: "offset"}
}

// levelFor returns the session extreme that serves as a target for the
// given side: highs cap longs, lows cap shorts.
func levelFor(s Session, side market.Side) float64 {
	if side == market.Long {
		return s.High
	}
	return s.Low
}
