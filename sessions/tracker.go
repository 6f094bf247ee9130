// Package sessions tracks rolling exchange-local trading sessions and
// derives take-profit levels from their highs and lows.
package sessions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/deltabar/market"
)

// Type identifies one of the three tracked clock windows.
type Type int

const (
	PriorDay Type = iota // prior-day regular hours, 09:30-16:00
	Overnight            // 18:00-04:00, crosses midnight
	Morning              // pre-market, 04:00-09:30
)

func (t Type) String() string {
	switch t {
	case PriorDay:
		return "prior_day"
	case Overnight:
		return "overnight"
	case Morning:
		return "morning"
	default:
		return fmt.Sprintf("session(%d)", int(t))
	}
}

// clock ranges in minutes of the exchange-local day
var sessionRanges = map[Type][2]int{
	PriorDay:  {9*60 + 30, 16 * 60},
	Overnight: {18 * 60, 4 * 60}, // start > end: crosses midnight
	Morning:   {4 * 60, 9*60 + 30},
}

// Session is the running high/low of one clock window. High and Low are
// meaningless until Valid; they start unset, not zero.
type Session struct {
	Type     Type
	High     float64
	Low      float64
	Valid    bool
	BarCount int
}

// update folds a bar's extremes into the session.
func (s *Session) update(b market.Bar) {
	if !s.Valid {
		s.High = b.High
		s.Low = b.Low
		s.Valid = true
		s.BarCount = 1
		return
	}
	if b.High > s.High {
		s.High = b.High
	}
	if b.Low < s.Low {
		s.Low = b.Low
	}
	s.BarCount++
}

func (s *Session) reset(t Type) {
	*s = Session{Type: t}
}

// Archived is a session snapshot taken at daily rotation.
type Archived struct {
	Session
	Date time.Time // trading date (exchange-local midnight)
}

const (
	historyCap       = 30
	historyTPLookups = 9 // most recent archived sessions consulted for TP
	minTPLevels      = 3 // current levels below this pull in history
)

// Tracker maintains the three sessions, rotates them on exchange-local
// date change, and archives rotated sessions into a bounded history.
type Tracker struct {
	loc      *time.Location
	sessions [3]Session
	history  []Archived
	date     time.Time // current trading date, local midnight; zero until first bar
	log      *slog.Logger
}

// NewTracker creates a tracker in the given exchange zone; nil or empty
// name falls back to America/New_York.
func NewTracker(loc *time.Location, log *slog.Logger) *Tracker {
	if loc == nil {
		loc, _ = time.LoadLocation("America/New_York")
	}
	if log == nil {
		log = slog.Default()
	}
	t := &Tracker{loc: loc, log: log}
	for i := range t.sessions {
		t.sessions[i].reset(Type(i))
	}
	return t
}

// Update consumes one closed bar: rotates on local date change, then
// folds the bar into whichever session its local close time falls in.
// A bar outside all three windows updates nothing.
func (t *Tracker) Update(b market.Bar) {
	local := b.Time.In(t.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.loc)

	if t.date.IsZero() || !day.Equal(t.date) {
		t.rotate(day)
	}

	minute := local.Hour()*60 + local.Minute()
	for i := range t.sessions {
		if inRange(sessionRanges[Type(i)], minute) {
			t.sessions[i].update(b)
			return // windows are mutually exclusive
		}
	}
}

// rotate archives valid sessions and resets all three for the new date.
func (t *Tracker) rotate(day time.Time) {
	for i := range t.sessions {
		if t.sessions[i].Valid {
			t.history = append(t.history, Archived{Session: t.sessions[i], Date: t.date})
		}
		t.sessions[i].reset(Type(i))
	}
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}
	if !t.date.IsZero() {
		t.log.Info("session rotation", "from", t.date.Format("2006-01-02"), "to", day.Format("2006-01-02"),
			"archived", len(t.history))
	}
	t.date = day
}

// inRange tests a minute-of-day against a clock range, handling ranges
// that cross midnight (start > end).
func inRange(r [2]int, minute int) bool {
	start, end := r[0], r[1]
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// Current returns a copy of the named session.
func (t *Tracker) Current(typ Type) Session {
	return t.sessions[typ]
}

// History returns the archived sessions, oldest first.
func (t *Tracker) History() []Archived {
	out := make([]Archived, len(t.history))
	copy(out, t.history)
	return out
}
