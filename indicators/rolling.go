package indicators

import "sort"

// Baseline selects how rolling baselines are computed.
type Baseline int

const (
	BaselineMean Baseline = iota
	BaselineMedian
)

// Rolling is a bounded window of raw values with mean/median baselines.
// Calculators compare a current reading against Baseline() of its own
// recent history.
type Rolling struct {
	size   int
	values []float64
}

// NewRolling creates a rolling window of the given lookback size.
func NewRolling(size int) *Rolling {
	if size <= 0 {
		size = 20
	}
	return &Rolling{size: size}
}

// Push appends a value, evicting the oldest once full.
func (r *Rolling) Push(v float64) {
	r.values = append(r.values, v)
	if len(r.values) > r.size {
		copy(r.values, r.values[1:])
		r.values = r.values[:r.size]
	}
}

// Full reports whether the window holds its full lookback.
func (r *Rolling) Full() bool { return len(r.values) >= r.size }

// Size returns the configured lookback.
func (r *Rolling) Size() int { return r.size }

// Len returns the current number of values.
func (r *Rolling) Len() int { return len(r.values) }

// Reset drops all values.
func (r *Rolling) Reset() { r.values = r.values[:0] }

// Mean returns the arithmetic mean of the window, or 0 when empty.
func (r *Rolling) Mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// Median returns the window median; even windows average the middle
// two. Returns 0 when empty.
func (r *Rolling) Median() float64 {
	n := len(r.values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, r.values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Baseline returns the configured central value of the window.
func (r *Rolling) Baseline(kind Baseline) float64 {
	if kind == BaselineMedian {
		return r.Median()
	}
	return r.Mean()
}
