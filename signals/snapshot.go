package signals

import "time"

// Result is one calculator's reading for a single evaluation cycle.
type Result struct {
	Name    string
	Ready   bool
	LongOK  bool
	ShortOK bool
	Value   float64
}

// Snapshot records every calculator's reading at one bar close. It is
// built fresh on each update and never mutated afterwards; voting and
// diagnostics both read from it, which is what makes the vote
// predicates idempotent between updates.
type Snapshot struct {
	Time     time.Time
	RefPrice float64
	Results  []Result
}

// ByName returns the result for a named calculator.
func (s Snapshot) ByName(name string) (Result, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}
