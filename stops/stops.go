// Package stops computes ATR-based trailing stop losses and tracks one
// stop/target record per open position.
package stops

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/deltabar/market"
)

// Record is the stop/target state for one open position.
type Record struct {
	ID          string
	Side        market.Side
	EntryPrice  float64
	InitialStop float64
	CurrentStop float64
	TakeProfit  float64
	UpdateCount int
	Trailing    bool
}

// Config is the static stop geometry.
type Config struct {
	ATRMult  float64 // stop distance beyond the previous bar extreme
	MinTicks int     // clamp: closest allowed stop
	MaxTicks int     // clamp: widest allowed stop
	TickSize float64
	Trailing bool // ratchet stops bar by bar
}

// Engine owns the stop records. The registry is shared between the bar
// pipeline (ratcheting) and the tick path (hit checks), so mutation is
// mutex-guarded.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*Record
}

func NewEngine(cfg Config) *Engine {
	if cfg.ATRMult <= 0 {
		cfg.ATRMult = 1.0
	}
	if cfg.TickSize <= 0 {
		cfg.TickSize = 0.25
	}
	if cfg.MinTicks <= 0 {
		cfg.MinTicks = 4
	}
	if cfg.MaxTicks < cfg.MinTicks {
		cfg.MaxTicks = cfg.MinTicks * 10
	}
	return &Engine{cfg: cfg, records: make(map[string]*Record)}
}

// Compute returns the stop price for a would-be position: beyond the
// previous bar's adverse extreme by ATR*mult, with the distance from
// entry clamped to [MinTicks, MaxTicks]. An unready ATR (zero) degrades
// to the minimum-distance stop.
func (e *Engine) Compute(side market.Side, entry, prevHigh, prevLow, atr float64) float64 {
	minDist := float64(e.cfg.MinTicks) * e.cfg.TickSize
	maxDist := float64(e.cfg.MaxTicks) * e.cfg.TickSize

	var dist float64
	if atr <= 0 {
		dist = minDist
	} else if side == market.Long {
		dist = entry - (prevLow - atr*e.cfg.ATRMult)
	} else {
		dist = (prevHigh + atr*e.cfg.ATRMult) - entry
	}

	if dist < minDist {
		dist = minDist
	}
	if dist > maxDist {
		dist = maxDist
	}

	if side == market.Long {
		return entry - dist
	}
	return entry + dist
}

// Open registers a stop record for a newly opened position.
func (e *Engine) Open(id string, side market.Side, entry, takeProfit, prevHigh, prevLow, atr float64) Record {
	stop := e.Compute(side, entry, prevHigh, prevLow, atr)
	rec := &Record{
		ID:          id,
		Side:        side,
		EntryPrice:  entry,
		InitialStop: stop,
		CurrentStop: stop,
		TakeProfit:  takeProfit,
		Trailing:    e.cfg.Trailing,
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[id] = rec
	return *rec
}

// Ratchet recomputes every trailing stop against the latest bar and
// replaces a stored stop only when the recomputed one is more
// favorable: higher for longs, lower for shorts. It returns the ids
// whose stops moved.
func (e *Engine) Ratchet(prevHigh, prevLow, atr float64) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var moved []string
	for id, rec := range e.records {
		if !rec.Trailing {
			continue
		}
		// the entry-distance clamp applies only at open; trailing uses
		// the raw bar-anchored stop so it can move past breakeven
		next := e.trailFrom(rec.Side, prevHigh, prevLow, atr)
		favorable := (rec.Side == market.Long && next > rec.CurrentStop) ||
			(rec.Side == market.Short && next < rec.CurrentStop)
		if favorable {
			rec.CurrentStop = next
			rec.UpdateCount++
			moved = append(moved, id)
		}
	}
	return moved
}

// trailFrom computes the stop implied by the previous bar alone.
func (e *Engine) trailFrom(side market.Side, prevHigh, prevLow, atr float64) float64 {
	if atr <= 0 {
		if side == market.Long {
			return prevLow
		}
		return prevHigh
	}
	if side == market.Long {
		return prevLow - atr*e.cfg.ATRMult
	}
	return prevHigh + atr*e.cfg.ATRMult
}

// StopHit reports whether the live price has crossed the stored stop,
// with side-correct inequality direction.
func (e *Engine) StopHit(id string, price float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return false
	}
	if rec.Side == market.Long {
		return price <= rec.CurrentStop
	}
	return price >= rec.CurrentStop
}

// TargetHit reports whether the live price has reached the take profit.
func (e *Engine) TargetHit(id string, price float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return false
	}
	if rec.Side == market.Long {
		return price >= rec.TakeProfit
	}
	return price <= rec.TakeProfit
}

// Get returns a copy of the record for id.
func (e *Engine) Get(id string) (Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Close removes the record when its position closes.
func (e *Engine) Close(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.records[id]; !ok {
		return fmt.Errorf("stop record %q not found", id)
	}
	delete(e.records, id)
	return nil
}

// All returns copies of every record, for diagnostics and SL/TP sync.
func (e *Engine) All() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, 0, len(e.records))
	for _, rec := range e.records {
		out = append(out, *rec)
	}
	return out
}

// Len returns the number of tracked positions.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}
