package engine

import (
	"time"

	"github.com/rustyeddy/deltabar/market"
)

// Position is one open position tracked by the engine.
type Position struct {
	ID       string
	Side     market.Side
	Qty      int
	Entry    float64
	OpenTime time.Time
	closing  bool // an exit intent is in flight
}

// State consolidates the engine's mutable position state. It lives
// inside the Engine and is mutated only under the engine's lock; no
// ambient singletons.
type State struct {
	positions map[string]*Position
}

func newState() *State {
	return &State{positions: make(map[string]*Position)}
}

// Side returns the direction of the open stack, or 0 when flat.
func (s *State) Side() market.Side {
	for _, p := range s.positions {
		return p.Side // all open positions share one direction
	}
	return 0
}

// Stack returns the number of open positions.
func (s *State) Stack() int { return len(s.positions) }

// OpenQty returns total open contracts.
func (s *State) OpenQty() int {
	qty := 0
	for _, p := range s.positions {
		qty += p.Qty
	}
	return qty
}

// activeQty returns open contracts excluding positions already being
// closed, so a reversal's fresh entry is sized against the post-exit
// exposure.
func (s *State) activeQty() int {
	qty := 0
	for _, p := range s.positions {
		if !p.closing {
			qty += p.Qty
		}
	}
	return qty
}

// Unrealized returns the open PnL at the given price.
func (s *State) Unrealized(price, pointValue float64) float64 {
	pnl := 0.0
	for _, p := range s.positions {
		pnl += (price - p.Entry) * float64(p.Side) * float64(p.Qty) * pointValue
	}
	return pnl
}

func (s *State) add(p *Position)  { s.positions[p.ID] = p }
func (s *State) remove(id string) { delete(s.positions, id) }
func (s *State) get(id string) (*Position, bool) {
	p, ok := s.positions[id]
	return p, ok
}

// each returns the open positions in unspecified order.
func (s *State) each() []*Position {
	out := make([]*Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}
