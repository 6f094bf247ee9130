// Package replay drives the decision engine from recorded bars with
// an instant-fill simulated boundary. Every intent fills at its
// requested price on the same bar, which makes runs deterministic and
// lets strategy settings be compared offline.
package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/deltabar/engine"
	"github.com/rustyeddy/deltabar/market"
	"github.com/rustyeddy/deltabar/pkg/id"
)

// Result summarizes one replay run.
type Result struct {
	Bars        int
	Fills       int
	Closes      int
	RealizedPnL float64
}

type openPos struct {
	side  market.Side
	qty   int
	entry float64
}

// Runner owns the simulated fill boundary for one engine.
type Runner struct {
	eng        *engine.Engine
	mbox       *engine.Mailbox
	pointValue float64
	log        *slog.Logger

	open   map[string]openPos
	result Result
}

// NewRunner wires a runner to an engine and its mailbox.
func NewRunner(eng *engine.Engine, mbox *engine.Mailbox, pointValue float64, log *slog.Logger) *Runner {
	if pointValue <= 0 {
		pointValue = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		eng:        eng,
		mbox:       mbox,
		pointValue: pointValue,
		log:        log,
		open:       make(map[string]openPos),
	}
}

// CSV replays bars from a CSV file.
//
// Formats supported:
//
//  1. OHLCV bars (delta estimated from the bar shape):
//     time,open,high,low,close,volume
//
//  2. Bars with measured volume delta:
//     time,open,high,low,close,volume,delta
//
// Times are RFC3339. A header row starting with "time" is skipped.
// The run stops early without error when ctx is cancelled.
func (r *Runner) CSV(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return r.result, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	first := true
	for {
		if ctx.Err() != nil {
			r.log.Info("replay cancelled", "bars", r.result.Bars)
			return r.result, nil
		}
		row, err := cr.Read()
		if err == io.EOF {
			return r.result, nil
		}
		if err != nil {
			return r.result, err
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		b, err := parseBar(row)
		if err != nil {
			return r.result, err
		}
		r.Bar(b)
		if r.eng.Stopped() {
			r.log.Warn("engine stopped mid-replay", "bars", r.result.Bars)
			return r.result, nil
		}
	}
}

// Bar feeds one bar and settles every resulting intent before
// returning, so the engine sees its fills within the same bar.
func (r *Runner) Bar(b market.Bar) {
	r.eng.OnBar(b)
	r.result.Bars++
	for {
		intent, ok := r.mbox.TryRecv()
		if !ok {
			return
		}
		r.apply(intent)
	}
}

// Summary returns the run totals so far.
func (r *Runner) Summary() Result { return r.result }

func (r *Runner) apply(in engine.PositionIntent) {
	if in.Kind == engine.Exit {
		pos, ok := r.open[in.PositionID]
		if !ok {
			r.log.Warn("exit for unknown position", "id", in.PositionID)
			return
		}
		realized := (in.Price - pos.entry) * float64(pos.side) * float64(pos.qty) * r.pointValue
		delete(r.open, in.PositionID)
		r.result.Closes++
		r.result.RealizedPnL += realized
		r.eng.OnClose(in.PositionID, realized, in.Time)
		return
	}

	pid := id.NewAt(in.Time)
	r.open[pid] = openPos{side: in.Side, qty: in.Qty, entry: in.Price}
	r.result.Fills++
	r.eng.OnFill(pid, in.Side, in.Qty, in.Price, in.Time)
}

func parseBar(row []string) (market.Bar, error) {
	if len(row) < 6 {
		return market.Bar{}, fmt.Errorf("bad row (need time,open,high,low,close,volume): %v", row)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return market.Bar{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad field %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	b := market.Bar{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
		Time:   t,
	}

	if len(row) >= 7 && strings.TrimSpace(row[6]) != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad delta %q: %w", row[6], err)
		}
		b.Delta = market.MeasuredDelta(d)
	} else {
		b.Delta = market.EstimateDelta(b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return b, nil
}
