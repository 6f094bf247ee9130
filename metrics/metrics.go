// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntentsTotal counts emitted position intents by kind and side.
	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deltabar_intents_total",
		Help: "Position intents emitted by the decision engine.",
	}, []string{"kind", "side"})

	// HaltsTotal counts risk halts raised.
	HaltsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deltabar_risk_halts_total",
		Help: "Times the risk governor halted new entries.",
	})

	// RejectsTotal counts order placements rejected by the boundary.
	RejectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deltabar_order_rejects_total",
		Help: "Order placements rejected by the boundary.",
	})

	// WindowTransitionsTotal counts trading window opens and closes.
	WindowTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deltabar_window_transitions_total",
		Help: "Trading window open and close transitions.",
	}, []string{"window", "event"})

	// StopRatchetsTotal counts trailing stop advances.
	StopRatchetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deltabar_stop_ratchets_total",
		Help: "Trailing stop advances applied.",
	})

	// OpenPositions reports the current stack size.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deltabar_open_positions",
		Help: "Open positions tracked by the engine.",
	})

	// PeriodPnL reports realized plus unrealized PnL for the period.
	PeriodPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deltabar_period_pnl",
		Help: "Realized plus unrealized PnL for the current risk period.",
	})
)
