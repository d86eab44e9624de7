package engine

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/signalstore/internal/ir"
)

// pending is one queued dispatch. err is written by the drainer that
// reduces the action, before it closes done.
type pending struct {
	action ir.Action
	err    error
	done   chan struct{}

	// detached is set for reentrant dispatches whose caller does not wait
	// for the result.
	detached bool
}

func newPending(a ir.Action, detached bool) *pending {
	return &pending{action: a, done: make(chan struct{}), detached: detached}
}

// finish publishes the result to whoever waits on p.
func (p *pending) finish(err error) {
	p.err = err
	if p.done != nil {
		close(p.done)
	}
}

// actionQueue is a thread-safe FIFO queue of dispatched actions plus the
// drain lock that serializes their reduction.
//
// The queue is unbounded so that actions dispatched from subscribers while a
// drain is running never block; they are picked up by the active drainer
// after the current action completes.
//
// Entries are stamped while the queue lock is held, so queue order and
// sequence order are the same.
type actionQueue struct {
	mu      sync.Mutex
	entries []*pending
	closed  bool
	stamp   func(*ir.Action)

	// drainMu is held by whichever goroutine is currently reducing actions;
	// drainer is that goroutine's id, or 0.
	drainMu sync.Mutex
	drainer atomic.Uint64
}

// newActionQueue creates a queue. stamp, if not nil, is applied to each
// action as it is enqueued.
func newActionQueue(stamp func(*ir.Action)) *actionQueue {
	return &actionQueue{
		entries: make([]*pending, 0, 16),
		stamp:   stamp,
	}
}

// Enqueue stamps p's action and adds p to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(p *pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.stamp != nil {
		q.stamp(&p.action)
	}
	q.entries = append(q.entries, p)
	return true
}

// DrainingOn reports whether goroutine gid is the active drainer.
func (q *actionQueue) DrainingOn(gid uint64) bool {
	return gid != 0 && q.drainer.Load() == gid
}

// TryDequeue removes and returns the front entry without blocking.
func (q *actionQueue) TryDequeue() (*pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}

	p := q.entries[0]
	q.entries[0] = nil
	if len(q.entries) == 1 {
		q.entries = q.entries[:0]
	} else {
		q.entries = q.entries[1:]
	}
	return p, true
}

// Len returns the current queue length.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close rejects further Enqueue calls. Entries already queued are still
// drained.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close was called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain processes queued entries with apply until the queue is empty.
//
// If another drain is in progress (on this goroutine, through a reentrant
// dispatch, or on another goroutine) Drain returns false immediately and the
// active drainer picks up the remaining entries. Drain returns true once it
// has emptied the queue itself.
func (q *actionQueue) Drain(apply func(*pending)) bool {
	drained := false
	for {
		if !q.drainMu.TryLock() {
			return drained
		}
		q.drainer.Store(goroutineID())
		func() {
			defer func() {
				q.drainer.Store(0)
				q.drainMu.Unlock()
			}()
			for {
				p, ok := q.TryDequeue()
				if !ok {
					return
				}
				apply(p)
			}
		}()
		drained = true

		// An entry enqueued between our last TryDequeue and Unlock saw the
		// lock held and handed off to us.
		if q.Len() == 0 {
			return drained
		}
	}
}
