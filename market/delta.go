package market

// VolumeDelta is buy-initiated minus sell-initiated volume for a bar.
// Feeds that carry order-flow data give us a measured value; bar-only
// feeds get an estimate derived from the bar's shape. Callers that care
// about the difference check Measured; everything downstream just reads
// Value.
type VolumeDelta struct {
	Value    float64
	Measured bool
}

// MeasuredDelta wraps a delta reported by the feed.
func MeasuredDelta(v float64) VolumeDelta {
	return VolumeDelta{Value: v, Measured: true}
}

// EstimateDelta approximates the volume delta of a bar from the close
// position within the bar's range: a close at the high attributes all
// volume to buyers, a close at the low to sellers, scaled linearly in
// between. A zero-range bar estimates to zero.
func EstimateDelta(open, high, low, close, volume float64) VolumeDelta {
	rng := high - low
	if rng <= 0 {
		return VolumeDelta{}
	}
	pos := 2*((close-low)/rng) - 1 // close position in [-1, +1]
	return VolumeDelta{Value: pos * volume}
}
