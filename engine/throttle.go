package engine

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is the duplicate-order suppressor: a minimum spacing
// between orders plus a waiting-for-fill latch. The latch expires on
// its own after fillTimeout so a lost fill confirmation cannot block
// entries forever; the order itself is the boundary's problem.
type Throttle struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	waiting     bool
	since       time.Time
	fillTimeout time.Duration
	log         *slog.Logger
}

// NewThrottle spaces orders at least minSpacing apart and expires the
// fill latch after fillTimeout.
func NewThrottle(minSpacing, fillTimeout time.Duration, log *slog.Logger) *Throttle {
	if minSpacing <= 0 {
		minSpacing = time.Second
	}
	if fillTimeout <= 0 {
		fillTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Throttle{
		limiter:     rate.NewLimiter(rate.Every(minSpacing), 1),
		fillTimeout: fillTimeout,
		log:         log,
	}
}

// Allow reports whether a new order may be issued now. A pending fill
// blocks until it is confirmed, rejected, or times out.
func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.waiting {
		if now.Sub(t.since) < t.fillTimeout {
			return false
		}
		t.log.Warn("fill confirmation timed out; releasing order latch",
			"waited", now.Sub(t.since).String())
		t.waiting = false
	}
	return t.limiter.AllowN(now, 1)
}

// MarkPending latches after an order is sent, until fill confirmation.
func (t *Throttle) MarkPending(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiting = true
	t.since = now
}

// Clear releases the latch on fill confirmation or rejection.
func (t *Throttle) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiting = false
}

// Pending reports whether a fill confirmation is outstanding.
func (t *Throttle) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiting
}
