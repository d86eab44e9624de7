package reactive

import "sync"

// input is a type-erased upstream of a Computed.
type input struct {
	get       func() any
	subscribe func(func()) func()
}

func inputOf[T any](r Readable[T]) input {
	return input{
		get:       func() any { return r.Get() },
		subscribe: r.Subscribe,
	}
}

// Computed is a read-only value derived from other reactive values.
type Computed[T any] struct {
	mu      sync.Mutex
	inputs  []input
	compute func(vals []any) T

	valid bool
	last  []any
	value T
	evals int

	// notified is the value subscribers were last told about. A pull through
	// Get may evaluate before the input's own notification arrives, so change
	// detection for subscribers compares against this instead of refresh.
	notified T

	subs     subscribers
	attachMu sync.Mutex
	detach   []func()
}

func newComputed[T any](inputs []input, compute func([]any) T) *Computed[T] {
	return &Computed[T]{inputs: inputs, compute: compute}
}

// Map derives a value from a single input.
func Map[A, R any](a Readable[A], fn func(A) R) *Computed[R] {
	return Derive1(a, fn)
}

// Derive1 derives a value from one input.
func Derive1[A, R any](a Readable[A], fn func(A) R) *Computed[R] {
	return newComputed([]input{inputOf(a)}, func(v []any) R {
		return fn(as[A](v[0]))
	})
}

// Derive2 derives a value from two inputs.
func Derive2[A, B, R any](a Readable[A], b Readable[B], fn func(A, B) R) *Computed[R] {
	return newComputed([]input{inputOf(a), inputOf(b)}, func(v []any) R {
		return fn(as[A](v[0]), as[B](v[1]))
	})
}

// Derive3 derives a value from three inputs.
func Derive3[A, B, C, R any](a Readable[A], b Readable[B], c Readable[C], fn func(A, B, C) R) *Computed[R] {
	return newComputed([]input{inputOf(a), inputOf(b), inputOf(c)}, func(v []any) R {
		return fn(as[A](v[0]), as[B](v[1]), as[C](v[2]))
	})
}

// as converts a type-erased input back, mapping a nil interface to the zero value.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Get returns the derived value, evaluating the derivation if any input changed.
func (c *Computed[T]) Get() T {
	return c.refresh()
}

// Evaluations returns how many times the derivation function has run.
func (c *Computed[T]) Evaluations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evals
}

// refresh re-reads inputs and evaluates the derivation when needed.
func (c *Computed[T]) refresh() T {
	c.mu.Lock()
	defer c.mu.Unlock()

	vals := make([]any, len(c.inputs))
	for i, in := range c.inputs {
		vals[i] = in.get()
	}

	if c.valid && sameInputs(c.last, vals) {
		return c.value
	}

	c.value = c.compute(vals)
	c.evals++
	c.last = vals
	c.valid = true
	return c.value
}

func sameInputs(prev, next []any) bool {
	for i := range next {
		if !Identical(prev[i], next[i]) {
			return false
		}
	}
	return true
}

// Subscribe registers fn to be called whenever the derived value changes.
// The first subscriber attaches c to its inputs; the last one detaches it.
func (c *Computed[T]) Subscribe(fn func()) func() {
	c.attachMu.Lock()
	if c.detach == nil {
		v := c.refresh()
		c.mu.Lock()
		c.notified = v
		c.mu.Unlock()
		for _, in := range c.inputs {
			c.detach = append(c.detach, in.subscribe(c.onInput))
		}
	}
	c.attachMu.Unlock()

	unsub := c.subs.add(fn)
	return func() {
		unsub()
		c.attachMu.Lock()
		defer c.attachMu.Unlock()
		if c.subs.len() == 0 && c.detach != nil {
			for _, d := range c.detach {
				d()
			}
			c.detach = nil
		}
	}
}

func (c *Computed[T]) onInput() {
	v := c.refresh()

	c.mu.Lock()
	changed := !Identical(any(c.notified), any(v))
	if changed {
		c.notified = v
	}
	c.mu.Unlock()

	if changed {
		c.subs.notify()
	}
}
