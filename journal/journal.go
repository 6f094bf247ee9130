// Package journal persists the strategy's daily output: one summary
// row per risk period and the session ranges archived at each day
// roll. Individual orders and fills are not journaled here.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/deltabar/risk"
	"github.com/rustyeddy/deltabar/sessions"
)

// DaySummary is one closed risk period.
type DaySummary struct {
	Date          string // YYYY-MM-DD, exchange-local
	Window        string // active window name, empty for calendar-day periods
	RealizedPnL   float64
	UnrealizedPnL float64
	TradeCount    int
	WinCount      int
	LossCount     int
	OrderCount    int
	MaxDrawdown   float64
	MaxProfit     float64
	Halted        bool
	HaltReason    string
}

// SessionLevel is one archived session range.
type SessionLevel struct {
	Date     string // YYYY-MM-DD, exchange-local
	Session  string // prior_day, overnight, morning
	High     float64
	Low      float64
	BarCount int
}

// Journal is the persistence boundary. Implementations append only.
type Journal interface {
	RecordDay(DaySummary) error
	RecordSession(SessionLevel) error
	Close() error
}

// Open selects a backend by type name: "sqlite", "csv", or "" for a
// no-op journal.
func Open(typ, dbPath, summaryFile string) (Journal, error) {
	switch typ {
	case "sqlite":
		return NewSQLite(dbPath)
	case "csv":
		return NewCSV(summaryFile)
	case "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", typ)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDay(DaySummary) error       { return nil }
func (Nop) RecordSession(SessionLevel) error { return nil }
func (Nop) Close() error                     { return nil }

// FromTracker converts a closed risk period to a summary row.
func FromTracker(dt risk.DayTracker) DaySummary {
	return DaySummary{
		Date:          dt.PeriodStart.Format("2006-01-02"),
		Window:        dt.Window,
		RealizedPnL:   dt.RealizedPnL,
		UnrealizedPnL: dt.UnrealizedPnL,
		TradeCount:    dt.TradeCount,
		WinCount:      dt.WinCount,
		LossCount:     dt.LossCount,
		OrderCount:    dt.OrderCount,
		MaxDrawdown:   dt.MaxDrawdown,
		MaxProfit:     dt.MaxProfit,
		Halted:        dt.Halted,
		HaltReason:    dt.HaltReason,
	}
}

// FromArchived converts an archived session to a level row.
func FromArchived(a sessions.Archived, loc *time.Location) SessionLevel {
	return SessionLevel{
		Date:     a.Date.In(loc).Format("2006-01-02"),
		Session:  a.Type.String(),
		High:     a.High,
		Low:      a.Low,
		BarCount: a.BarCount,
	}
}
