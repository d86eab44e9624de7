package engine

import "sync/atomic"

// SeqClock stamps dispatched actions with strictly increasing sequence numbers.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is the default monotonic logical clock for action ordering.
//
// All actions are stamped with a strictly increasing seq number from this
// clock, never with wall-clock time. Replaying the same actions in seq order
// reproduces the same states.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
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
