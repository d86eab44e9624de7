package demo

import (
	"sync"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/feature"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/reactive"
)

// CounterKey is the AppState key of the counter feature.
const CounterKey = "counter"

// CounterState is the counter slice.
type CounterState struct {
	Count int `json:"count"`
}

// Counter is a feature store over CounterState that remembers its last
// update so it can be undone.
type Counter struct {
	*feature.FeatureStore[CounterState]

	Count       *reactive.Computed[int]
	DoubleCount *reactive.Computed[int]

	mu   sync.Mutex
	last *ir.Action
}

// NewCounter registers the counter feature starting at initial.
func NewCounter(st *engine.Store, initial int) (*Counter, error) {
	fs, err := feature.New(st, CounterKey, CounterState{Count: initial})
	if err != nil {
		return nil, err
	}
	count := feature.Select(fs, func(s CounterState) int { return s.Count })
	return &Counter{
		FeatureStore: fs,
		Count:        count,
		DoubleCount:  reactive.Map(count, func(n int) int { return n * 2 }),
	}, nil
}

// Inc adds one.
func (c *Counter) Inc() error {
	return c.step(1, "increment")
}

// Dec subtracts one.
func (c *Counter) Dec() error {
	return c.step(-1, "decrement")
}

func (c *Counter) step(delta int, name string) error {
	a, err := c.UpdateFn(func(s CounterState) CounterState {
		return CounterState{Count: s.Count + delta}
	}, name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.last = &a
	c.mu.Unlock()
	return nil
}

// UndoLast reverts the most recent Inc or Dec. Without a recorded update it
// does nothing.
func (c *Counter) UndoLast() error {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last == nil {
		return nil
	}
	return c.Undo(*last)
}
