package market

// Series keeps a bounded window of closed bars, newest last. It is the
// shared history every calculator reads; only the bar pipeline appends.
type Series struct {
	bars []Bar
	cap  int
}

// NewSeries creates a series that retains at most capacity bars.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 512
	}
	return &Series{cap: capacity}
}

// Push appends a closed bar, evicting the oldest once capacity is hit.
func (s *Series) Push(b Bar) {
	s.bars = append(s.bars, b)
	if len(s.bars) > s.cap {
		// shift rather than reslice so the backing array doesn't grow forever
		copy(s.bars, s.bars[1:])
		s.bars = s.bars[:s.cap]
	}
}

// Len returns the number of retained bars.
func (s *Series) Len() int { return len(s.bars) }

// Last returns the most recent closed bar and whether one exists.
func (s *Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// At returns the bar n positions back from the newest (0 = newest).
func (s *Series) At(n int) (Bar, bool) {
	if n < 0 || n >= len(s.bars) {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1-n], true
}

// Tail returns up to n most recent bars, oldest first. The returned
// slice aliases internal storage; callers must not mutate it.
func (s *Series) Tail(n int) []Bar {
	if n <= 0 || len(s.bars) == 0 {
		return nil
	}
	if n > len(s.bars) {
		n = len(s.bars)
	}
	return s.bars[len(s.bars)-n:]
}

// Reset drops all retained bars.
func (s *Series) Reset() {
	s.bars = s.bars[:0]
}
