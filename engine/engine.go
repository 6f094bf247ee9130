// Package engine is the order-intent state machine: it combines the
// aggregated signals, the time-window gate, the trailing stop engine,
// and the risk governor into at most a few position intents per closed
// bar.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
	"github.com/rustyeddy/deltabar/metrics"
	"github.com/rustyeddy/deltabar/risk"
	"github.com/rustyeddy/deltabar/sessions"
	"github.com/rustyeddy/deltabar/signals"
	"github.com/rustyeddy/deltabar/stops"
	"github.com/rustyeddy/deltabar/windows"
)

// Config is the engine's static policy.
type Config struct {
	Qty            int  // contracts per entry
	MaxStack       int  // max stacked same-direction positions
	AllowReversal  bool // close-and-flip on opposite signal
	MinTPTicks     int  // minimum take-profit distance
	TPOffsetTicks  int  // alternate fixed-offset target
	TickSize       float64
	PointValue     float64       // account currency per point per contract
	SignalCooldown time.Duration // same-side re-entry suppression, 0 disables
}

// Deps are the collaborating subsystems, owned elsewhere and driven
// through the engine's event entrypoints.
type Deps struct {
	Signals  *signals.Aggregator
	Sessions *sessions.Tracker
	Gate     *windows.Gate
	Stops    *stops.Engine
	Risk     *risk.Governor
	ATR      *indicators.ATR
	Mailbox  *Mailbox
	Log      *slog.Logger

	// StopSync, when set, receives every new or ratcheted stop record
	// so the boundary can keep broker stop/limit orders in line.
	StopSync func(stops.Record)
}

// Engine evaluates one closed bar at a time. The mutex guards the
// place-entry sequence and the position registry, which the tick path
// and fill callbacks also touch; everything else is owned by the bar
// pipeline, which processes one bar at a time by contract with the
// feed.
type Engine struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps
	log  *slog.Logger

	state    *State
	throttle *Throttle
	series   *market.Series

	pendingTP   float64
	pendingSide market.Side
	hasPending  bool

	lastEntry map[market.Side]time.Time // per-side signal cooldown

	stopped bool // runaway ceiling hit, fatal for the session
}

// New wires the engine. Throttle spacing and the fill-latch timeout
// come from minSpacing/fillTimeout.
func New(cfg Config, deps Deps, minSpacing, fillTimeout time.Duration) *Engine {
	if cfg.Qty <= 0 {
		cfg.Qty = 1
	}
	if cfg.MaxStack <= 0 {
		cfg.MaxStack = 1
	}
	if cfg.TickSize <= 0 {
		cfg.TickSize = 0.25
	}
	if cfg.PointValue <= 0 {
		cfg.PointValue = 1
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		log:       log,
		state:     newState(),
		throttle:  NewThrottle(minSpacing, fillTimeout, log),
		series:    market.NewSeries(1024),
		lastEntry: make(map[market.Side]time.Time),
	}
}

// Stopped reports whether the runaway ceiling permanently stopped the
// engine for this session.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// OnBar consumes one closed bar: updates every subsystem, ratchets
// stops, refreshes risk PnL, then runs the decision cascade. Signal
// state is fully updated before any decision reads it.
func (e *Engine) OnBar(b market.Bar) {
	if e.Stopped() {
		return
	}

	e.deps.Gate.Observe(b.Time)
	window := e.deps.Gate.ActiveWindow()
	e.deps.Risk.Observe(b.Time, window)

	e.deps.ATR.Update(b)
	e.deps.Signals.Update(b)
	e.deps.Sessions.Update(b)

	moved := e.deps.Stops.Ratchet(b.High, b.Low, e.deps.ATR.Value())
	for _, id := range moved {
		metrics.StopRatchetsTotal.Inc()
		if rec, ok := e.deps.Stops.Get(id); ok && e.deps.StopSync != nil {
			e.deps.StopSync(rec)
		}
	}

	e.mu.Lock()
	unrealized := e.state.Unrealized(b.Close, e.cfg.PointValue)
	e.mu.Unlock()
	e.deps.Risk.SetUnrealized(b.Time, window, unrealized)
	metrics.PeriodPnL.Set(e.deps.Risk.Current().Total())

	e.evaluate(b, window)

	// fill callbacks read the series under the lock
	e.mu.Lock()
	e.series.Push(b)
	e.mu.Unlock()
}

// evaluate runs the fixed-priority decision cascade for one bar.
func (e *Engine) evaluate(b market.Bar, window string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// 1. forced exit on window boundary, consumed exactly once
	if e.deps.Gate.ShouldFlatten() {
		if e.state.Stack() > 0 {
			e.exitAllLocked(b, "window_close")
		}
		return
	}

	// 2. stop/target hits at the close
	for _, p := range e.state.each() {
		if p.closing {
			continue
		}
		switch {
		case e.deps.Stops.StopHit(p.ID, b.Close):
			e.exitOneLocked(b, p, "stop_loss")
		case e.deps.Stops.TargetHit(p.ID, b.Close):
			e.exitOneLocked(b, p, "take_profit")
		}
	}

	side := e.state.Side()

	// 3. reversal-of-bias exit for the open direction; when the
	// opposite side also clears the stricter entry threshold and
	// reversals are enabled, the exit upgrades to a close-and-flip
	if side == market.Long && e.deps.Signals.ExitLong() {
		if e.cfg.AllowReversal && e.deps.Signals.EntryShort() && !e.deps.Signals.Contradictory() {
			e.exitAllLocked(b, "reversal")
			e.enterLocked(b, market.Short, Reversal, window, "reversal")
		} else {
			e.exitAllLocked(b, "signal_exit")
		}
		return
	}
	if side == market.Short && e.deps.Signals.ExitShort() {
		if e.cfg.AllowReversal && e.deps.Signals.EntryLong() && !e.deps.Signals.Contradictory() {
			e.exitAllLocked(b, "reversal")
			e.enterLocked(b, market.Long, Reversal, window, "reversal")
		} else {
			e.exitAllLocked(b, "signal_exit")
		}
		return
	}

	// contradictory same-bar votes are no signal, not a coin flip
	if e.deps.Signals.Contradictory() {
		e.log.Debug("contradictory entry votes; standing down", "bar", b.Time)
		return
	}

	entryLong := e.deps.Signals.EntryLong()
	entryShort := e.deps.Signals.EntryShort()

	switch side {
	case 0:
		if entryLong {
			e.enterLocked(b, market.Long, Entry, window, "signal_entry")
		} else if entryShort {
			e.enterLocked(b, market.Short, Entry, window, "signal_entry")
		}
	case market.Long:
		// 4. reversal beats 5. stacking
		if entryShort && e.cfg.AllowReversal {
			e.exitAllLocked(b, "reversal")
			e.enterLocked(b, market.Short, Reversal, window, "reversal")
		} else if entryLong && e.state.Stack() < e.cfg.MaxStack {
			e.enterLocked(b, market.Long, Entry, window, "stack_entry")
		}
	case market.Short:
		if entryLong && e.cfg.AllowReversal {
			e.exitAllLocked(b, "reversal")
			e.enterLocked(b, market.Long, Reversal, window, "reversal")
		} else if entryShort && e.state.Stack() < e.cfg.MaxStack {
			e.enterLocked(b, market.Short, Entry, window, "stack_entry")
		}
	}
}

// enterLocked runs the guarded entry sequence: gate, runaway ceiling,
// risk halt, size validation, throttle, then intent emission with the
// fill latch set. Callers hold e.mu.
func (e *Engine) enterLocked(b market.Bar, side market.Side, kind Kind, window, reason string) {
	if !e.deps.Gate.TradingAllowed(b.Time) {
		return
	}
	if e.deps.Risk.Runaway() {
		e.log.Error("daily order ceiling reached; stopping strategy for the session")
		e.exitAllLocked(b, "runaway_stop")
		e.stopped = true
		return
	}
	if e.deps.Risk.ShouldHalt(b.Time, window) {
		metrics.HaltsTotal.Inc()
		e.log.Warn("entry blocked by risk halt", "reason", e.deps.Risk.Current().HaltReason)
		return
	}
	if err := e.deps.Risk.ValidateSize(e.cfg.Qty, e.state.activeQty()); err != nil {
		e.log.Warn("entry blocked by size validation", "err", err)
		return
	}
	if e.cfg.SignalCooldown > 0 {
		if last, ok := e.lastEntry[side]; ok && b.Time.Sub(last) < e.cfg.SignalCooldown {
			e.log.Debug("entry suppressed by signal cooldown", "side", side.String())
			return
		}
	}
	if !e.throttle.Allow(b.Time) {
		return
	}

	tp := e.deps.Sessions.SelectTakeProfit(b.Close, side, e.cfg.MinTPTicks, e.cfg.TPOffsetTicks, e.cfg.TickSize)

	intent := PositionIntent{
		Side:   side,
		Kind:   kind,
		Qty:    e.cfg.Qty,
		Price:  b.Close,
		Reason: reason,
		Time:   b.Time,
	}
	if err := e.deps.Mailbox.Send(intent); err != nil {
		e.log.Error("intent dropped", "err", err, "intent", intent.String())
		return
	}

	e.pendingTP = tp.Price
	e.pendingSide = side
	e.hasPending = true
	e.lastEntry[side] = b.Time
	e.throttle.MarkPending(b.Time)
	e.deps.Risk.RecordOrder(b.Time, window)
	metrics.IntentsTotal.WithLabelValues(kind.String(), side.String()).Inc()
	e.log.Info("entry intent", "side", side.String(), "kind", kind.String(),
		"qty", e.cfg.Qty, "price", b.Close, "tp", tp.Price, "tp_source", tp.Source, "reason", reason)
}

// exitOneLocked emits a targeted exit for one position.
func (e *Engine) exitOneLocked(b market.Bar, p *Position, reason string) {
	intent := PositionIntent{
		Side:       p.Side,
		Kind:       Exit,
		Qty:        p.Qty,
		Price:      b.Close,
		PositionID: p.ID,
		Reason:     reason,
		Time:       b.Time,
	}
	if err := e.deps.Mailbox.Send(intent); err != nil {
		e.log.Error("exit intent dropped", "err", err, "position", p.ID)
		return
	}
	p.closing = true
	e.deps.Risk.RecordOrder(b.Time, e.deps.Gate.ActiveWindow())
	metrics.IntentsTotal.WithLabelValues(Exit.String(), p.Side.String()).Inc()
	e.log.Info("exit intent", "position", p.ID, "reason", reason, "price", b.Close)
}

// exitAllLocked emits exits for every open position still standing.
func (e *Engine) exitAllLocked(b market.Bar, reason string) {
	for _, p := range e.state.each() {
		if !p.closing {
			e.exitOneLocked(b, p, reason)
		}
	}
}

// OnTick monitors live prices against stops and targets between bar
// closes. It shares the engine lock with fill handling so a hit check
// cannot race an in-flight placement decision for the same position.
func (e *Engine) OnTick(t market.Tick) {
	if e.Stopped() {
		return
	}
	e.deps.Gate.Observe(t.Time)

	price := t.Price
	if price <= 0 {
		price = t.Mid()
	}
	if price <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	bar := market.Bar{Close: price, Time: t.Time}
	for _, p := range e.state.each() {
		if p.closing {
			continue
		}
		switch {
		case e.deps.Stops.StopHit(p.ID, price):
			e.exitOneLocked(bar, p, "stop_loss")
		case e.deps.Stops.TargetHit(p.ID, price):
			e.exitOneLocked(bar, p, "take_profit")
		}
	}
}

// OnFill records a confirmed entry: the position joins the registry, a
// stop record is created from the previous bar and current ATR, and
// the fill latch clears.
func (e *Engine) OnFill(id string, side market.Side, qty int, price float64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.throttle.Clear()

	tp := e.pendingTP
	if !e.hasPending || e.pendingSide != side {
		// fill without a matching pending entry: fall back to the
		// fixed-offset target
		tp = price + float64(side)*float64(e.cfg.TPOffsetTicks)*e.cfg.TickSize
	}
	e.hasPending = false

	prevHigh, prevLow := price, price
	if prev, ok := e.series.Last(); ok {
		prevHigh, prevLow = prev.High, prev.Low
	}

	rec := e.deps.Stops.Open(id, side, price, tp, prevHigh, prevLow, e.deps.ATR.Value())
	e.state.add(&Position{ID: id, Side: side, Qty: qty, Entry: price, OpenTime: at})
	metrics.OpenPositions.Set(float64(e.state.Stack()))

	if e.deps.StopSync != nil {
		e.deps.StopSync(rec)
	}
	e.log.Info("position opened", "id", id, "side", side.String(), "qty", qty,
		"entry", price, "stop", rec.CurrentStop, "target", rec.TakeProfit)
}

// OnClose records a confirmed position close and books the realized
// PnL with the risk governor.
func (e *Engine) OnClose(id string, realized float64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.state.get(id); !ok {
		e.log.Warn("close for unknown position", "id", id)
		return
	}
	e.state.remove(id)
	_ = e.deps.Stops.Close(id)
	metrics.OpenPositions.Set(float64(e.state.Stack()))

	e.deps.Risk.RecordFill(at, e.deps.Gate.ActiveWindow(), realized)
	e.log.Info("position closed", "id", id, "realized", realized)
}

// HandleReject is the mailbox's rejection callback: the latch resets,
// a rejected exit clears its closing flag, and a rejected entry sheds
// its cooldown stamp, so the next natural decision cycle can retry.
// No immediate retry loop.
func (e *Engine) HandleReject(intent PositionIntent, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.RejectsTotal.Inc()
	e.throttle.Clear()
	e.hasPending = false

	if intent.Kind == Exit && intent.PositionID != "" {
		if p, ok := e.state.get(intent.PositionID); ok {
			p.closing = false
		}
	} else {
		// a rejected entry never opened anything; drop its cooldown
		// stamp so the next decision cycle can retry
		delete(e.lastEntry, intent.Side)
	}
	e.log.Warn("order rejected; latch reset", "intent", intent.String(), "err", err)
}

// Positions returns copies of the open positions.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, e.state.Stack())
	for _, p := range e.state.each() {
		out = append(out, *p)
	}
	return out
}

// Side returns the engine's current direction, 0 when flat.
func (e *Engine) Side() market.Side {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Side()
}

// Stack returns the number of open positions.
func (e *Engine) Stack() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Stack()
}
