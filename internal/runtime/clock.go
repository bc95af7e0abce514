package runtime

import "sync/atomic"

// Sequencer hands out logical timestamps. Every invocation and completion is
// stamped with a strictly increasing seq; wall time is never used for ordering.
//
// Observe moves the clock forward to at least seq and never moves it back.
// The runtime calls it with the log's last seq before stamping, so records
// committed by another process sharing the log are never reissued.
type Sequencer interface {
	Next() int64
	Current() int64
	Observe(seq int64)
}

// Clock is the production Sequencer. Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used when reopening a log so seq keeps increasing across restarts.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Observe advances the clock to seq if it is behind.
func (c *Clock) Observe(seq int64) {
	for {
		cur := c.seq.Load()
		if cur >= seq || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
