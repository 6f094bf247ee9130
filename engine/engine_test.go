package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/market"
	"github.com/rustyeddy/deltabar/risk"
	"github.com/rustyeddy/deltabar/sessions"
	"github.com/rustyeddy/deltabar/signals"
	"github.com/rustyeddy/deltabar/stops"
	"github.com/rustyeddy/deltabar/windows"
)

// fakeCalc is a vote source the tests flip directly.
type fakeCalc struct {
	long, short bool
}

func (f *fakeCalc) Name() string        { return "fake" }
func (f *fakeCalc) Warmup() int         { return 0 }
func (f *fakeCalc) Reset()              {}
func (f *fakeCalc) Update(_ market.Bar) {}
func (f *fakeCalc) Ready() bool         { return true }
func (f *fakeCalc) LongOK() bool        { return f.long }
func (f *fakeCalc) ShortOK() bool       { return f.short }
func (f *fakeCalc) Value() float64      { return 0 }

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nyLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

type fixture struct {
	eng  *Engine
	calc *fakeCalc
	mbox *Mailbox
	gov  *risk.Governor
	base time.Time
}

// newFixture wires an engine around a single controllable calculator.
// With no windows configured, weekday trading is always allowed and no
// flatten boundary ever fires. The fill latch is stretched to five
// minutes so it holds across the one-minute test bars.
func newFixture(t *testing.T, cfg Config, ws []windows.Window) *fixture {
	t.Helper()
	loc := nyLoc(t)
	log := quietLog()

	calc := &fakeCalc{}
	agg := signals.NewAggregator([]signals.Member{{Calc: calc, Entry: true, Exit: true}}, 1, 1, log)
	gov := risk.NewGovernor(risk.Config{
		MaxDailyLoss:    1000,
		MaxOrderQty:     10,
		MaxOrdersPerDay: 50,
	}, loc, log)
	mbox := NewMailbox(32, log)

	deps := Deps{
		Signals:  agg,
		Sessions: sessions.NewTracker(loc, log),
		Gate:     windows.NewGate(ws, loc, log),
		Stops:    stops.NewEngine(stops.Config{ATRMult: 1, MinTicks: 4, MaxTicks: 400, TickSize: 0.25, Trailing: true}),
		Risk:     gov,
		ATR:      indicators.NewATR(14),
		Mailbox:  mbox,
		Log:      log,
	}
	eng := New(cfg, deps, time.Second, 5*time.Minute)

	// Monday morning, regular session
	base := time.Date(2024, time.June, 3, 10, 0, 0, 0, loc)
	return &fixture{eng: eng, calc: calc, mbox: mbox, gov: gov, base: base}
}

// bar builds a one-minute bar i minutes past the fixture base.
func (f *fixture) bar(i int, close float64) market.Bar {
	return market.Bar{
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
		Delta:  market.MeasuredDelta(100),
		Time:   f.base.Add(time.Duration(i) * time.Minute),
	}
}

// drain empties the mailbox synchronously.
func (f *fixture) drain() []PositionIntent {
	var out []PositionIntent
	for {
		select {
		case in := <-f.mbox.ch:
			out = append(out, in)
		default:
			return out
		}
	}
}

func TestEntryStackingAndCeiling(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, MinTPTicks: 4, TPOffsetTicks: 8, TickSize: 0.25}, nil)
	f.calc.long = true

	f.eng.OnBar(f.bar(0, 5000))
	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Entry, intents[0].Kind)
	assert.Equal(t, market.Long, intents[0].Side)
	assert.Equal(t, 1, intents[0].Qty)

	// fill latch: no second entry until the first confirms
	f.eng.OnBar(f.bar(1, 5000))
	assert.Empty(t, f.drain())

	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)
	require.Equal(t, 1, f.eng.Stack())

	// stack up to MaxStack, confirming each fill
	f.eng.OnBar(f.bar(2, 5000))
	intents = f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, "stack_entry", intents[0].Reason)
	f.eng.OnFill("p2", market.Long, 1, 5000, f.base.Add(2*time.Minute))

	f.eng.OnBar(f.bar(3, 5000))
	require.Len(t, f.drain(), 1)
	f.eng.OnFill("p3", market.Long, 1, 5000, f.base.Add(3*time.Minute))
	require.Equal(t, 3, f.eng.Stack())

	// at the ceiling the same signal is a no-op
	f.eng.OnBar(f.bar(4, 5000))
	assert.Empty(t, f.drain())
	assert.Equal(t, 3, f.eng.Stack())
	assert.Equal(t, market.Long, f.eng.Side())
}

func TestReversalClosesThenFlips(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, AllowReversal: true, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	require.Len(t, f.drain(), 1)
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	// opposite signal while long: exit and fresh entry in one cycle
	f.calc.long = false
	f.calc.short = true
	f.eng.OnBar(f.bar(1, 5000))

	intents := f.drain()
	require.Len(t, intents, 2)
	assert.Equal(t, Exit, intents[0].Kind)
	assert.Equal(t, market.Long, intents[0].Side)
	assert.Equal(t, "p1", intents[0].PositionID)
	assert.Equal(t, "reversal", intents[0].Reason)
	assert.Equal(t, Reversal, intents[1].Kind)
	assert.Equal(t, market.Short, intents[1].Side)

	f.eng.OnClose("p1", -25, f.base.Add(time.Minute))
	f.eng.OnFill("p2", market.Short, 1, 5000, f.base.Add(time.Minute))
	assert.Equal(t, market.Short, f.eng.Side())
	assert.Equal(t, 1, f.eng.Stack())
}

func TestReversalDisabledExitsOnly(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	f.drain()
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	f.calc.long = false
	f.calc.short = true
	f.eng.OnBar(f.bar(1, 5000))

	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Exit, intents[0].Kind)
	assert.Equal(t, "signal_exit", intents[0].Reason)
}

func TestContradictoryVotesStandDown(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)
	f.calc.long = true
	f.calc.short = true

	f.eng.OnBar(f.bar(0, 5000))
	assert.Empty(t, f.drain())
	assert.Equal(t, 0, f.eng.Stack())
}

func TestWindowBoundaryFlattens(t *testing.T) {
	ws := []windows.Window{{Name: "regular", Enabled: true, Start: 9*60 + 30, End: 16 * 60}}
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, ws)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000)) // 10:00, inside the window
	require.Len(t, f.drain(), 1)
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	// 16:30 is past the close: forced exit, and no re-entry despite
	// the still-firing long signal
	f.eng.OnBar(f.bar(390, 5000))
	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Exit, intents[0].Kind)
	assert.Equal(t, "window_close", intents[0].Reason)
	assert.Equal(t, "p1", intents[0].PositionID)

	f.eng.OnClose("p1", 0, f.base.Add(390*time.Minute))

	// still outside the window on the next bar
	f.eng.OnBar(f.bar(391, 5000))
	assert.Empty(t, f.drain())
}

func TestRiskHaltBlocksEntries(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	f.drain()
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	// a closed loss past the daily cap halts new entries
	f.calc.long = false
	f.eng.OnBar(f.bar(1, 5000))
	f.drain()
	f.eng.OnClose("p1", -1200, f.base.Add(time.Minute))

	f.calc.long = true
	f.eng.OnBar(f.bar(2, 5000))
	assert.Empty(t, f.drain())
	assert.True(t, f.gov.Current().Halted)
}

func TestStopHitExitsAtClose(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 1, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	f.drain()
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)
	f.calc.long = false

	// a close far below the entry is under any plausible stop
	f.eng.OnBar(f.bar(1, 4980))
	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Exit, intents[0].Kind)
	assert.Equal(t, "stop_loss", intents[0].Reason)
	assert.Equal(t, "p1", intents[0].PositionID)

	// position is marked closing; the same hit does not re-fire
	f.eng.OnBar(f.bar(2, 4980))
	assert.Empty(t, f.drain())
}

func TestTickStopMonitoring(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 1, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	f.drain()
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	f.eng.OnTick(market.Tick{Price: 4980, Time: f.base.Add(30 * time.Second)})
	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Exit, intents[0].Kind)
	assert.Equal(t, "stop_loss", intents[0].Reason)
}

func TestRejectReleasesLatch(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	intents := f.drain()
	require.Len(t, intents, 1)

	// latched: nothing until the boundary answers
	f.eng.OnBar(f.bar(1, 5000))
	assert.Empty(t, f.drain())

	f.eng.HandleReject(intents[0], errors.New("insufficient margin"))

	// retry happens on the next natural cycle, not immediately
	f.eng.OnBar(f.bar(2, 5000))
	intents = f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Entry, intents[0].Kind)
}

func TestRejectedExitReopensForRetry(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 1, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	f.drain()
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)
	f.calc.long = false

	f.eng.OnBar(f.bar(1, 4980))
	intents := f.drain()
	require.Len(t, intents, 1)

	f.eng.HandleReject(intents[0], errors.New("venue unavailable"))

	// the closing flag is cleared, so the next bar retries the exit
	f.eng.OnBar(f.bar(2, 4980))
	intents = f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, "stop_loss", intents[0].Reason)
}

func TestSignalCooldownSuppressesReentry(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25, SignalCooldown: 3 * time.Minute}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	require.Len(t, f.drain(), 1)
	f.eng.OnFill("p1", market.Long, 1, 5000, f.base)

	// one minute later: same-side signal is inside the cooldown
	f.eng.OnBar(f.bar(1, 5000))
	assert.Empty(t, f.drain())

	// past the cooldown the stack entry goes through
	f.eng.OnBar(f.bar(4, 5000))
	require.Len(t, f.drain(), 1)
}

func TestRejectClearsSignalCooldown(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25, SignalCooldown: 3 * time.Minute}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	intents := f.drain()
	require.Len(t, intents, 1)

	f.eng.HandleReject(intents[0], errors.New("insufficient margin"))

	// the rejected entry never opened anything, so the next cycle
	// retries instead of sitting out the cooldown
	f.eng.OnBar(f.bar(1, 5000))
	intents = f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Entry, intents[0].Kind)
}

func TestFillTimeoutReleasesEntryLatch(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	require.Len(t, f.drain(), 1)

	// the fill never confirms: entries stay blocked until the latch
	// times out, then release on their own
	for i := 1; i < 5; i++ {
		f.eng.OnBar(f.bar(i, 5000))
		assert.Empty(t, f.drain(), "bar %d inside the fill timeout", i)
	}

	f.eng.OnBar(f.bar(5, 5000))
	intents := f.drain()
	require.Len(t, intents, 1)
	assert.Equal(t, Entry, intents[0].Kind)
}

// Bars, ticks, and fill callbacks arrive on different goroutines; this
// exercises the shared gate and bar-series state across all three,
// including a window boundary crossing.
func TestConcurrentBarTickAndFillPaths(t *testing.T) {
	morning := windows.Window{Name: "morning", Enabled: true, Start: 570, End: 720}
	f := newFixture(t, Config{Qty: 1, MaxStack: 1, TPOffsetTicks: 8, TickSize: 0.25}, []windows.Window{morning})
	f.calc.long = true

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 150; i++ {
			f.eng.OnBar(f.bar(i, 5000))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 150; i++ {
			f.eng.OnTick(market.Tick{Price: 5000, Time: f.base.Add(time.Duration(i) * time.Minute)})
			switch i {
			case 30:
				f.eng.OnFill("c1", market.Long, 1, 5000, f.base.Add(30*time.Minute))
			case 60:
				f.eng.OnClose("c1", 0, f.base.Add(60*time.Minute))
			}
		}
	}()
	wg.Wait()

	f.drain()
	assert.False(t, f.eng.Stopped())
}

func TestRunawayCeilingStopsEngine(t *testing.T) {
	f := newFixture(t, Config{Qty: 1, MaxStack: 3, TPOffsetTicks: 8, TickSize: 0.25}, nil)
	// exhaust the daily order cap directly
	for i := 0; i < 50; i++ {
		f.gov.RecordOrder(f.base, "")
	}

	f.calc.long = true
	f.eng.OnBar(f.bar(0, 5000))
	assert.Empty(t, f.drain())
	assert.True(t, f.eng.Stopped())

	// stopped is terminal for the session
	f.eng.OnBar(f.bar(1, 5000))
	assert.Empty(t, f.drain())
}

func TestMailboxRunDeliversAndReports(t *testing.T) {
	mbox := NewMailbox(4, quietLog())

	placed := make(chan PositionIntent, 4)
	rejected := make(chan PositionIntent, 4)
	placer := placerFunc(func(in PositionIntent) error {
		if in.Reason == "bad" {
			return errors.New("rejected")
		}
		placed <- in
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mbox.Run(ctx, placer, func(in PositionIntent, _ error) { rejected <- in })

	require.NoError(t, mbox.Send(PositionIntent{Reason: "ok"}))
	require.NoError(t, mbox.Send(PositionIntent{Reason: "bad"}))

	assert.Equal(t, "ok", (<-placed).Reason)
	assert.Equal(t, "bad", (<-rejected).Reason)
}

type placerFunc func(PositionIntent) error

func (f placerFunc) Place(_ context.Context, in PositionIntent) error { return f(in) }
