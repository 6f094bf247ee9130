package engine

import (
	"context"
	"errors"
	"log/slog"
)

// ErrMailboxFull is returned when the decision cycle produces an
// intent faster than the placement worker drains them. With one
// consumer and one intent per cycle this signals a stuck boundary.
var ErrMailboxFull = errors.New("order mailbox full")

// Placer is the order-placement boundary: it turns an intent into a
// broker order. Implementations may block on I/O; the mailbox worker
// is the only goroutine that calls them, which serializes order
// issuance without explicit locking around placement.
type Placer interface {
	Place(ctx context.Context, intent PositionIntent) error
}

// Mailbox is the bounded intent queue between the decision engine and
// the single placement worker.
type Mailbox struct {
	ch  chan PositionIntent
	log *slog.Logger
}

// NewMailbox creates a mailbox with the given capacity.
func NewMailbox(capacity int, log *slog.Logger) *Mailbox {
	if capacity <= 0 {
		capacity = 16
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mailbox{ch: make(chan PositionIntent, capacity), log: log}
}

// Send enqueues an intent without blocking.
func (m *Mailbox) Send(intent PositionIntent) error {
	select {
	case m.ch <- intent:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Run drains the mailbox with exactly one worker until ctx is
// cancelled. Placement failures are reported through onReject and the
// loop continues; the engine retries on its next natural decision
// cycle, never immediately.
func (m *Mailbox) Run(ctx context.Context, placer Placer, onReject func(PositionIntent, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case intent := <-m.ch:
			if err := placer.Place(ctx, intent); err != nil {
				m.log.Warn("order placement rejected", "intent", intent.String(), "err", err)
				if onReject != nil {
					onReject(intent, err)
				}
			}
		}
	}
}

// TryRecv pops one intent without blocking. Replay drains the mailbox
// synchronously after each bar instead of running a worker.
func (m *Mailbox) TryRecv() (PositionIntent, bool) {
	select {
	case intent := <-m.ch:
		return intent, true
	default:
		return PositionIntent{}, false
	}
}

// Len returns the number of queued intents.
func (m *Mailbox) Len() int { return len(m.ch) }
