// Package windows gates trading on configurable daily time windows.
package windows

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/deltabar/metrics"
)

// Window is one daily trading window in exchange-local minutes of day.
// Start > End means the window crosses midnight.
type Window struct {
	Name    string
	Enabled bool
	Start   int // minute of day, 0-1439
	End     int
}

// contains tests a minute-of-day against the window.
func (w Window) contains(minute int) bool {
	if w.Start <= w.End {
		return minute >= w.Start && minute < w.End
	}
	return minute >= w.Start || minute < w.End
}

// ParseHHMM converts "1830" or "0400" style clock strings to a minute
// of day.
func ParseHHMM(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("clock %q: want HHMM", s)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%2d%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock %q: out of range", s)
	}
	return hh*60 + mm, nil
}

// Gate evaluates up to three windows against the exchange-local clock.
// Leaving the active window raises a one-shot flatten flag that the
// decision engine consumes exactly once. The bar and tick paths both
// observe the clock, so the transition state is mutex-guarded.
type Gate struct {
	windows      []Window
	loc          *time.Location
	log          *slog.Logger
	enabledCount int

	mu           sync.Mutex
	active       int // index of the active window, -1 when none
	started      bool
	flattenLatch bool
}

// NewGate builds the gate; nil location falls back to America/New_York.
func NewGate(ws []Window, loc *time.Location, log *slog.Logger) *Gate {
	if loc == nil {
		loc, _ = time.LoadLocation("America/New_York")
	}
	if log == nil {
		log = slog.Default()
	}
	g := &Gate{windows: ws, loc: loc, log: log, active: -1}
	for _, w := range ws {
		if w.Enabled {
			g.enabledCount++
		}
	}
	return g
}

// activeIndex returns the first enabled window containing the minute.
func (g *Gate) activeIndex(minute int) int {
	for i, w := range g.windows {
		if w.Enabled && w.contains(minute) {
			return i
		}
	}
	return -1
}

// Observe advances the gate to the given instant, logging transitions
// and latching the flatten flag when an active window is left. Call it
// on every tick or bar before querying the gate.
func (g *Gate) Observe(t time.Time) {
	local := t.In(g.loc)
	idx := g.activeIndex(local.Hour()*60 + local.Minute())

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		g.started = true
		g.active = idx
		return
	}
	if idx == g.active {
		return
	}

	if g.active >= 0 {
		g.log.Info("trading window closed", "window", g.windows[g.active].Name, "at", local.Format("15:04"))
		metrics.WindowTransitionsTotal.WithLabelValues(g.windows[g.active].Name, "close").Inc()
		g.flattenLatch = true
	}
	if idx >= 0 {
		g.log.Info("trading window opened", "window", g.windows[idx].Name, "at", local.Format("15:04"))
		metrics.WindowTransitionsTotal.WithLabelValues(g.windows[idx].Name, "open").Inc()
	}
	g.active = idx
}

// TradingAllowed reports whether the instant is inside an enabled
// window on a weekday. With zero enabled windows trading is allowed
// around the clock; that fallback is deliberate.
func (g *Gate) TradingAllowed(t time.Time) bool {
	local := t.In(g.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if g.enabledCount == 0 {
		return true
	}
	return g.activeIndex(local.Hour()*60+local.Minute()) >= 0
}

// ShouldFlatten consumes the one-shot flatten flag: it returns true at
// most once per window exit.
func (g *Gate) ShouldFlatten() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.flattenLatch {
		g.flattenLatch = false
		return true
	}
	return false
}

// ActiveWindow returns the name of the currently active window, or "".
func (g *Gate) ActiveWindow() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active < 0 {
		return ""
	}
	return g.windows[g.active].Name
}

// EnabledCount returns how many windows are enabled.
func (g *Gate) EnabledCount() int { return g.enabledCount }
