// Package risk tracks per-period profit and loss and gates order flow:
// daily loss halting, position-size validation, and the hard runaway
// order ceiling.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config is the static risk policy.
type Config struct {
	MaxDailyLoss      float64 // halt new entries when period PnL reaches -this
	MaxOrderQty       int     // contracts per single order
	MaxExposureMult   float64 // total exposure cap = MaxOrderQty * this
	MarginPerContract float64 // estimated initial margin
	AccountBalance    float64
	MaxOrdersPerDay   int // hard runaway ceiling, fatal for the period
}

// DayTracker is the live PnL/trade ledger for one rotation period.
type DayTracker struct {
	PeriodStart   time.Time
	Window        string // enabled window that opened the period, "" for calendar day
	RealizedPnL   float64
	UnrealizedPnL float64
	TradeCount    int
	WinCount      int
	LossCount     int
	MaxDrawdown   float64 // most negative total seen
	MaxProfit     float64 // most positive total seen
	OrderCount    int
	Halted        bool
	HaltReason    string
}

// Total returns realized plus unrealized PnL.
func (d DayTracker) Total() float64 {
	return d.RealizedPnL + d.UnrealizedPnL
}

const archiveCap = 60

// Governor owns the current tracker and rotates it on local date
// change or on entry into a new enabled trading window. Every read
// checks rotation first so halt state is never derived from a stale
// period.
type Governor struct {
	mu      sync.Mutex
	cfg     Config
	loc     *time.Location
	cur     DayTracker
	archive []DayTracker
	log     *slog.Logger
	started bool
}

// NewGovernor builds a governor; nil location falls back to
// America/New_York.
func NewGovernor(cfg Config, loc *time.Location, log *slog.Logger) *Governor {
	if loc == nil {
		loc, _ = time.LoadLocation("America/New_York")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxExposureMult <= 0 {
		cfg.MaxExposureMult = 2
	}
	return &Governor{cfg: cfg, loc: loc, log: log}
}

// rotateIfNeeded starts a fresh tracker when the local date changed or
// a different enabled window became active. Callers hold g.mu.
func (g *Governor) rotateIfNeeded(now time.Time, window string) {
	local := now.In(g.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc)

	if !g.started {
		g.started = true
		g.cur = DayTracker{PeriodStart: day, Window: window}
		return
	}

	newDay := !day.Equal(time.Date(
		g.cur.PeriodStart.In(g.loc).Year(),
		g.cur.PeriodStart.In(g.loc).Month(),
		g.cur.PeriodStart.In(g.loc).Day(), 0, 0, 0, 0, g.loc))
	newWindow := window != "" && window != g.cur.Window

	if !newDay && !newWindow {
		return
	}

	g.archive = append(g.archive, g.cur)
	if len(g.archive) > archiveCap {
		g.archive = g.archive[len(g.archive)-archiveCap:]
	}
	g.log.Info("risk period rotated",
		"new_day", newDay, "window", window,
		"prev_realized", g.cur.RealizedPnL, "prev_halted", g.cur.Halted)

	start := day
	if newWindow && !newDay {
		start = now
	}
	g.cur = DayTracker{PeriodStart: start, Window: window}
}

// Observe advances the rotation clock; call once per bar or tick with
// the currently active window name ("" when none).
func (g *Governor) Observe(now time.Time, window string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotateIfNeeded(now, window)
}

// RecordFill books a realized PnL from a closed position.
func (g *Governor) RecordFill(now time.Time, window string, realized float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotateIfNeeded(now, window)

	g.cur.RealizedPnL += realized
	g.cur.TradeCount++
	if realized > 0 {
		g.cur.WinCount++
	} else if realized < 0 {
		g.cur.LossCount++
	}
	g.updateExtremes()
}

// SetUnrealized refreshes the open-position PnL estimate.
func (g *Governor) SetUnrealized(now time.Time, window string, unrealized float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotateIfNeeded(now, window)
	g.cur.UnrealizedPnL = unrealized
	g.updateExtremes()
}

func (g *Governor) updateExtremes() {
	total := g.cur.Total()
	if total < g.cur.MaxDrawdown {
		g.cur.MaxDrawdown = total
	}
	if total > g.cur.MaxProfit {
		g.cur.MaxProfit = total
	}
}

// ShouldHalt reports whether new entries are blocked for the rest of
// the period. Halting latches until the next rotation.
func (g *Governor) ShouldHalt(now time.Time, window string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotateIfNeeded(now, window)

	if g.cur.Halted {
		return true
	}
	if g.cfg.MaxDailyLoss > 0 && g.cur.Total() <= -g.cfg.MaxDailyLoss {
		g.cur.Halted = true
		g.cur.HaltReason = fmt.Sprintf("daily loss %.2f breached cap %.2f", g.cur.Total(), g.cfg.MaxDailyLoss)
		g.log.Warn("trading halted", "reason", g.cur.HaltReason)
		return true
	}
	return false
}

// ValidateSize checks a requested order quantity against the single
// order cap, the total exposure cap, and the estimated margin.
func (g *Governor) ValidateSize(requested, open int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if requested <= 0 {
		return fmt.Errorf("requested size %d must be positive", requested)
	}
	if g.cfg.MaxOrderQty > 0 && requested > g.cfg.MaxOrderQty {
		return fmt.Errorf("size %d exceeds max order size %d", requested, g.cfg.MaxOrderQty)
	}
	if g.cfg.MaxOrderQty > 0 {
		maxExposure := int(float64(g.cfg.MaxOrderQty) * g.cfg.MaxExposureMult)
		if open+requested > maxExposure {
			return fmt.Errorf("exposure %d would exceed cap %d", open+requested, maxExposure)
		}
	}
	if g.cfg.MarginPerContract > 0 && g.cfg.AccountBalance > 0 {
		need := float64(open+requested) * g.cfg.MarginPerContract
		if need > g.cfg.AccountBalance {
			return fmt.Errorf("estimated margin %.2f exceeds balance %.2f", need, g.cfg.AccountBalance)
		}
	}
	return nil
}

// RecordOrder counts an order against the runaway ceiling.
func (g *Governor) RecordOrder(now time.Time, window string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotateIfNeeded(now, window)
	g.cur.OrderCount++
}

// Runaway reports whether the hard order-count ceiling was hit. This
// is the one fatal condition: the strategy stops for the period.
func (g *Governor) Runaway() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.MaxOrdersPerDay > 0 && g.cur.OrderCount >= g.cfg.MaxOrdersPerDay
}

// Current returns a copy of the live tracker.
func (g *Governor) Current() DayTracker {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cur
}

// Archive returns the rotated-out trackers, oldest first.
func (g *Governor) Archive() []DayTracker {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]DayTracker, len(g.archive))
	copy(out, g.archive)
	return out
}
