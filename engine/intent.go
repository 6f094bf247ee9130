package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/deltabar/market"
)

// Kind classifies a position intent.
type Kind int

const (
	Entry Kind = iota
	Exit
	Reversal
)

func (k Kind) String() string {
	switch k {
	case Entry:
		return "entry"
	case Exit:
		return "exit"
	case Reversal:
		return "reversal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PositionIntent is one decided action, emitted to the order mailbox
// and consumed immediately by the placement boundary. It is never
// persisted.
type PositionIntent struct {
	Side       market.Side
	Kind       Kind
	Qty        int
	Price      float64 // reference price at decision time
	PositionID string  // set on targeted exits, empty otherwise
	Reason     string
	Time       time.Time
}

func (pi PositionIntent) String() string {
	return fmt.Sprintf("%s %s qty=%d @%.2f (%s)", pi.Kind, pi.Side, pi.Qty, pi.Price, pi.Reason)
}
