package testutil

import (
	"sync"

	"github.com/roach88/signalstore/internal/engine"
)

var _ engine.SeqClock = (*ResettableClock)(nil)

// ResettableClock is an engine.SeqClock whose counter can be rewound, so a
// scenario replayed against a fresh store stamps the same seq values as
// the recorded run.
//
// Thread-safety: all methods are safe for concurrent use.
type ResettableClock struct {
	mu  sync.Mutex
	seq int64
}

// NewResettableClock creates a clock whose first Next returns 1.
func NewResettableClock() *ResettableClock {
	return &ResettableClock{}
}

// Next advances the clock and returns the new value.
func (c *ResettableClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or 0.
func (c *ResettableClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds to 0.
func (c *ResettableClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
