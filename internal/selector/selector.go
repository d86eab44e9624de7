package selector

import (
	"sync"

	"github.com/roach88/signalstore/internal/reactive"
)

// Selector maps a state value to a derived result.
type Selector[S, R any] interface {
	Select(state S) R
}

// Func adapts a plain function to a Selector. It is not memoized.
type Func[S, R any] func(S) R

// Select implements Selector.
func (f Func[S, R]) Select(state S) R {
	return f(state)
}

// Identity returns the selector that yields the state itself.
func Identity[S any]() Selector[S, S] {
	return Func[S, S](func(s S) S { return s })
}

// FeatureState returns the root selector for one feature slice of the whole
// application state. A missing key or a slice of a different type yields the
// zero value of T.
func FeatureState[T any](featureKey string) Selector[map[string]any, T] {
	return Func[map[string]any, T](func(state map[string]any) T {
		v, _ := state[featureKey].(T)
		return v
	})
}

// Memoized is a selector that caches its last input results and output.
type Memoized[S, R any] struct {
	mu      sync.Mutex
	inputs  []func(S) any
	project func([]any) R

	valid     bool
	lastState any
	lastArgs  []any
	value     R
	recomputs int
}

func newMemoized[S, R any](inputs []func(S) any, project func([]any) R) *Memoized[S, R] {
	return &Memoized[S, R]{inputs: inputs, project: project}
}

func erase[S, R any](sel Selector[S, R]) func(S) any {
	return func(s S) any { return sel.Select(s) }
}

// Select evaluates the selector for state.
func (m *Memoized[S, R]) Select(state S) R {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && reactive.Identical(m.lastState, any(state)) {
		return m.value
	}

	args := make([]any, len(m.inputs))
	for i, in := range m.inputs {
		args[i] = in(state)
	}
	m.lastState = state

	if m.valid && sameArgs(m.lastArgs, args) {
		return m.value
	}

	m.value = m.project(args)
	m.lastArgs = args
	m.valid = true
	m.recomputs++
	return m.value
}

// Recomputations returns how many times the projector has run.
func (m *Memoized[S, R]) Recomputations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recomputs
}

// Release drops the cached state, arguments and result.
func (m *Memoized[S, R]) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero R
	m.valid = false
	m.lastState = nil
	m.lastArgs = nil
	m.value = zero
}

func sameArgs(prev, next []any) bool {
	for i := range next {
		if !reactive.Identical(prev[i], next[i]) {
			return false
		}
	}
	return true
}

// arg converts a type-erased input result back, mapping nil to the zero value.
func arg[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}
