package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/signalstore/internal/engine"
)

var _ engine.IDGenerator = (*SequenceGenerator)(nil)

// SequenceGenerator hands out prefix-1, prefix-2, ... and never runs out.
//
// engine.FixedGenerator panics once its list is consumed; scenario runs
// create an unknown number of features and temp ids, so the harness uses
// this generator instead.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator for prefix. An empty prefix
// defaults to "id".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
