package extension

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// Sink receives every reduced action with the state it produced.
type Sink interface {
	Send(ctx context.Context, a ir.Action, state engine.AppState) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a ir.Action, state engine.AppState) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, a ir.Action, state engine.AppState) error {
	return f(ctx, a, state)
}

// DefaultSendTimeout bounds a single sink delivery.
const DefaultSendTimeout = 2 * time.Second

// DefaultQueueSize is the number of deliveries buffered for a slow sink.
const DefaultQueueSize = 256

type delivery struct {
	action ir.Action
	state  engine.AppState
}

// DevToolsExtension mirrors the action stream to an external sink.
//
// Delivery is asynchronous and best effort: the middleware hands each reduced
// action to a buffered queue drained by one goroutine, so a slow sink never
// stalls Dispatch. When the queue is full the action is dropped. Sink errors,
// panics and drops are logged at Warn and never affect the reduction.
type DevToolsExtension struct {
	base
	sink    Sink
	timeout time.Duration
	size    int
	logger  *slog.Logger

	startOnce sync.Once
	queue     chan delivery
	done      chan struct{}

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
	dropped int
	closed  bool
}

// DevToolsOption configures a DevToolsExtension.
type DevToolsOption func(*DevToolsExtension)

// WithSendTimeout bounds each delivery. Default: DefaultSendTimeout.
func WithSendTimeout(d time.Duration) DevToolsOption {
	return func(e *DevToolsExtension) {
		e.timeout = d
	}
}

// WithQueueSize sets how many deliveries may wait for the sink.
// Default: DefaultQueueSize.
func WithQueueSize(n int) DevToolsOption {
	return func(e *DevToolsExtension) {
		if n > 0 {
			e.size = n
		}
	}
}

// DevTools creates a mirroring extension for sink.
func DevTools(sink Sink, opts ...DevToolsOption) *DevToolsExtension {
	e := &DevToolsExtension{
		base:    newBase(DevToolsID, engine.SortOrderDefault),
		sink:    sink,
		timeout: DefaultSendTimeout,
		size:    DefaultQueueSize,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	e.idle = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start adopts the store logger and starts the delivery goroutine.
func (e *DevToolsExtension) Start(s *engine.Store) error {
	e.logger = s.Logger()
	e.start()
	return nil
}

func (e *DevToolsExtension) start() {
	e.startOnce.Do(func() {
		e.queue = make(chan delivery, e.size)
		go e.deliver()
	})
}

// Middleware returns the mirroring middleware.
func (e *DevToolsExtension) Middleware() engine.Middleware {
	return engine.MiddlewareFunc(func(state engine.AppState, a ir.Action, next engine.RootReducer) engine.AppState {
		out := next(state, a)
		e.enqueue(a, out)
		return out
	})
}

func (e *DevToolsExtension) enqueue(a ir.Action, state engine.AppState) {
	e.start()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- delivery{action: a, state: state}:
		e.pending++
	default:
		e.dropped++
		e.logger.Warn("devtools queue full, action dropped",
			"action", a.Type,
			"seq", a.Seq,
			"dropped", e.dropped,
		)
	}
}

func (e *DevToolsExtension) deliver() {
	defer close(e.done)
	for d := range e.queue {
		e.send(d.action, d.state)

		e.mu.Lock()
		e.pending--
		if e.pending == 0 {
			e.idle.Broadcast()
		}
		e.mu.Unlock()
	}
}

// Flush blocks until every queued action has been handed to the sink.
func (e *DevToolsExtension) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.pending > 0 {
		e.idle.Wait()
	}
}

// Dropped returns how many actions were dropped because the queue was full.
func (e *DevToolsExtension) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close delivers what is queued, stops the delivery goroutine and closes the
// sink if it holds resources.
func (e *DevToolsExtension) Close() error {
	e.start()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	<-e.done

	if c, ok := e.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *DevToolsExtension) send(a ir.Action, state engine.AppState) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("devtools sink panicked", "action", a.Type, "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.sink.Send(ctx, a, state); err != nil {
		e.logger.Warn("devtools sink failed", "action", a.Type, "seq", a.Seq, "error", err)
	}
}

// MemoryEntry is one action captured by a MemorySink.
type MemoryEntry struct {
	Action ir.Action
	State  engine.AppState
}

// MemorySink keeps every delivery in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []MemoryEntry
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Send records a and state.
func (m *MemorySink) Send(_ context.Context, a ir.Action, state engine.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, MemoryEntry{Action: a, State: state})
	return nil
}

// Entries returns a copy of the captured entries.
func (m *MemorySink) Entries() []MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Types returns the captured action types in order.
func (m *MemorySink) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.entries))
	for i, e := range m.entries {
		types[i] = e.Action.Type
	}
	return types
}
