package signals

import (
	"log/slog"

	"github.com/rustyeddy/deltabar/market"
)

// Member wires a calculator into the aggregator with its purpose flags:
// a calculator can vote on entries, on exits, or both.
type Member struct {
	Calc  Calculator
	Entry bool
	Exit  bool
}

// Aggregator feeds every member calculator per bar and applies the
// N-of-M voting rule. Exit votes read the opposite direction's signal:
// an exit from a long is triggered by members voting short (a reversal
// of bias), and mirrored for shorts.
type Aggregator struct {
	members    []Member
	entryVotes int
	exitVotes  int
	snap       Snapshot
	log        *slog.Logger
}

// NewAggregator builds the voting aggregator. Required vote counts are
// clamped to a minimum of 1. A configuration with a nonzero requirement
// but no enabled members can never fire; that is warned once here and
// otherwise simply never trades.
func NewAggregator(members []Member, entryVotes, exitVotes int, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if entryVotes < 1 {
		entryVotes = 1
	}
	if exitVotes < 1 {
		exitVotes = 1
	}

	entryEnabled, exitEnabled := 0, 0
	for _, m := range members {
		if m.Entry {
			entryEnabled++
		}
		if m.Exit {
			exitEnabled++
		}
	}
	if entryEnabled == 0 {
		log.Warn("no calculators enabled for entry; entries will never fire",
			"required_votes", entryVotes)
	}
	if exitEnabled == 0 {
		log.Warn("no calculators enabled for exit; signal exits will never fire",
			"required_votes", exitVotes)
	}

	return &Aggregator{
		members:    members,
		entryVotes: entryVotes,
		exitVotes:  exitVotes,
		log:        log,
	}
}

// Update feeds the closed bar to every member and takes a fresh
// snapshot. A panicking calculator is isolated: it is logged, reads as
// not-ready for this cycle, and the remaining members still update.
func (a *Aggregator) Update(b market.Bar) {
	results := make([]Result, 0, len(a.members))
	for _, m := range a.members {
		res := a.updateOne(m.Calc, b)
		results = append(results, res)
	}
	a.snap = Snapshot{
		Time:     b.Time,
		RefPrice: b.Close,
		Results:  results,
	}
}

func (a *Aggregator) updateOne(c Calculator, b market.Bar) (res Result) {
	res.Name = c.Name()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("signal calculator panicked; treating as neutral",
				"calculator", res.Name, "panic", r)
			res = Result{Name: res.Name}
		}
	}()
	c.Update(b)
	res.Ready = c.Ready()
	if res.Ready {
		res.LongOK = c.LongOK()
		res.ShortOK = c.ShortOK()
		res.Value = c.Value()
	}
	return res
}

// Snapshot returns the record of the last evaluation cycle.
func (a *Aggregator) Snapshot() Snapshot { return a.snap }

// countVotes tallies snapshot votes among members enabled for the
// given purpose.
func (a *Aggregator) countVotes(entry bool, long bool) int {
	count := 0
	for i, m := range a.members {
		if entry && !m.Entry {
			continue
		}
		if !entry && !m.Exit {
			continue
		}
		if i >= len(a.snap.Results) {
			continue
		}
		res := a.snap.Results[i]
		if !res.Ready {
			continue
		}
		if (long && res.LongOK) || (!long && res.ShortOK) {
			count++
		}
	}
	return count
}

// EntryLong reports whether enough entry-enabled members vote long.
func (a *Aggregator) EntryLong() bool {
	return a.countVotes(true, true) >= a.entryVotes
}

// EntryShort reports whether enough entry-enabled members vote short.
func (a *Aggregator) EntryShort() bool {
	return a.countVotes(true, false) >= a.entryVotes
}

// ExitLong reports whether enough exit-enabled members vote short,
// i.e. the bias has reversed against an open long.
func (a *Aggregator) ExitLong() bool {
	return a.countVotes(false, false) >= a.exitVotes
}

// ExitShort reports whether enough exit-enabled members vote long.
func (a *Aggregator) ExitShort() bool {
	return a.countVotes(false, true) >= a.exitVotes
}

// Contradictory reports a same-cycle long+short entry vote. The
// decision engine treats this as no signal rather than picking a side.
func (a *Aggregator) Contradictory() bool {
	return a.EntryLong() && a.EntryShort()
}
