package reactive

import "sync"

// Readable is a read-only reactive value.
type Readable[T any] interface {
	// Get returns the current value.
	Get() T

	// Subscribe registers fn to be called after the value may have changed.
	// The returned function removes the subscription.
	Subscribe(fn func()) (unsubscribe func())
}

// Cell is a settable reactive value.
type Cell[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	subs    subscribers
}

// NewCell creates a cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Version returns the number of Set calls so far.
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Set stores v and notifies every subscriber, without comparing v to the
// previous value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	c.version++
	c.mu.Unlock()

	c.subs.notify()
}

// Update sets the cell to fn applied to the current value.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.value = fn(c.value)
	c.version++
	c.mu.Unlock()

	c.subs.notify()
}

// Subscribe registers fn to be called after every Set.
func (c *Cell[T]) Subscribe(fn func()) func() {
	return c.subs.add(fn)
}

// ReadOnly hides the setter of c.
func (c *Cell[T]) ReadOnly() Readable[T] {
	return readOnly[T]{c}
}

type readOnly[T any] struct{ c *Cell[T] }

func (r readOnly[T]) Get() T                      { return r.c.Get() }
func (r readOnly[T]) Subscribe(fn func()) func() { return r.c.Subscribe(fn) }

// Watch calls fn with the value of r each time r notifies.
// For a Computed that means each time the derived value changed.
func Watch[T any](r Readable[T], fn func(T)) (stop func()) {
	return r.Subscribe(func() {
		fn(r.Get())
	})
}

// subscribers is an ordered observer list safe for concurrent use.
// Observers are called in registration order, outside the lock, so they may
// subscribe or unsubscribe while being notified.
type subscribers struct {
	mu     sync.Mutex
	nextID uint64
	list   []subscriber
}

type subscriber struct {
	id uint64
	fn func()
}

func (s *subscribers) add(fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.list = append(s.list, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.list {
		if sub.id == id {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

func (s *subscribers) notify() {
	s.mu.Lock()
	list := make([]subscriber, len(s.list))
	copy(list, s.list)
	s.mu.Unlock()

	for _, sub := range list {
		sub.fn()
	}
}
