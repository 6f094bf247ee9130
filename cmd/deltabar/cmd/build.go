package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/deltabar/config"
	"github.com/rustyeddy/deltabar/engine"
	"github.com/rustyeddy/deltabar/indicators"
	"github.com/rustyeddy/deltabar/journal"
	"github.com/rustyeddy/deltabar/risk"
	"github.com/rustyeddy/deltabar/sessions"
	"github.com/rustyeddy/deltabar/signals"
	"github.com/rustyeddy/deltabar/stops"
	"github.com/rustyeddy/deltabar/windows"
)

// stack is everything assembled from one configuration.
type stack struct {
	eng     *engine.Engine
	mbox    *engine.Mailbox
	gov     *risk.Governor
	tracker *sessions.Tracker
	loc     *time.Location
}

// buildStack wires the full strategy from a validated config.
func buildStack(cfg *config.Config, log *slog.Logger) (*stack, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	members, err := cfg.Members()
	if err != nil {
		return nil, fmt.Errorf("build calculators: %w", err)
	}
	agg := signals.NewAggregator(members, cfg.Signals.EntryVotes, cfg.Signals.ExitVotes, log)

	ws, err := cfg.TradingWindows()
	if err != nil {
		return nil, fmt.Errorf("parse windows: %w", err)
	}

	tracker := sessions.NewTracker(loc, log)
	gov := risk.NewGovernor(risk.Config{
		MaxDailyLoss:      cfg.Risk.MaxDailyLoss,
		MaxOrderQty:       cfg.Risk.MaxOrderQty,
		MaxOrdersPerDay:   cfg.Risk.MaxOrdersPerDay,
		MaxExposureMult:   cfg.Risk.MaxExposureMult,
		MarginPerContract: cfg.Risk.MarginPerContract,
		AccountBalance:    cfg.Risk.AccountBalance,
	}, loc, log)
	mbox := engine.NewMailbox(0, log)

	atrPeriod := cfg.Stops.ATRPeriod
	if atrPeriod <= 0 {
		atrPeriod = 14
	}

	spacing, err := cfg.Engine.OrderSpacing()
	if err != nil {
		return nil, err
	}
	fillTimeout, err := cfg.Engine.FillTimeoutDuration()
	if err != nil {
		return nil, err
	}
	cooldown, err := cfg.Engine.CooldownDuration()
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Config{
		Qty:            cfg.Engine.Qty,
		MaxStack:       cfg.Engine.MaxStack,
		AllowReversal:  cfg.Engine.AllowReversal,
		MinTPTicks:     cfg.Engine.MinTPTicks,
		TPOffsetTicks:  cfg.Engine.TPOffsetTicks,
		TickSize:       cfg.Instrument.TickSize,
		PointValue:     cfg.Instrument.PointValue,
		SignalCooldown: cooldown,
	}, engine.Deps{
		Signals:  agg,
		Sessions: tracker,
		Gate:     windows.NewGate(ws, loc, log),
		Stops: stops.NewEngine(stops.Config{
			ATRMult:  cfg.Stops.ATRMult,
			MinTicks: cfg.Stops.MinTicks,
			MaxTicks: cfg.Stops.MaxTicks,
			TickSize: cfg.Instrument.TickSize,
			Trailing: cfg.Stops.Trailing,
		}),
		Risk:    gov,
		ATR:     indicators.NewATR(atrPeriod),
		Mailbox: mbox,
		Log:     log,
	}, spacing, fillTimeout)

	return &stack{eng: eng, mbox: mbox, gov: gov, tracker: tracker, loc: loc}, nil
}

// flushJournal writes every closed period and archived session, plus
// the period still in flight.
func (s *stack) flushJournal(j journal.Journal, log *slog.Logger) {
	for _, dt := range s.gov.Archive() {
		if err := j.RecordDay(journal.FromTracker(dt)); err != nil {
			log.Error("journal day summary", "err", err)
		}
	}
	if err := j.RecordDay(journal.FromTracker(s.gov.Current())); err != nil {
		log.Error("journal day summary", "err", err)
	}
	for _, a := range s.tracker.History() {
		if err := j.RecordSession(journal.FromArchived(a, s.loc)); err != nil {
			log.Error("journal session level", "err", err)
		}
	}
}
