package engine

import (
	"sort"

	"github.com/roach88/signalstore/internal/ir"
)

// AppState is the whole application state: one entry per registered feature key.
//
// AppState values published by the store are never mutated afterwards; every
// reduction produces a fresh map.
type AppState = map[string]any

// Reducer computes the next value of one feature slice. It must be pure and
// must not mutate state.
type Reducer func(state any, a ir.Action) any

// RootReducer computes the next whole application state.
type RootReducer func(state AppState, a ir.Action) AppState

// Middleware wraps the root reducer. Implementations call next to continue
// the pipeline and may inspect or replace both the incoming state and the
// state next returns.
type Middleware interface {
	Apply(state AppState, a ir.Action, next RootReducer) AppState
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(state AppState, a ir.Action, next RootReducer) AppState

// Apply calls f.
func (f MiddlewareFunc) Apply(state AppState, a ir.Action, next RootReducer) AppState {
	return f(state, a, next)
}

// MetaReducer is a higher-order root reducer in the classic Redux shape.
type MetaReducer func(RootReducer) RootReducer

// Apply wraps next with m and runs it.
func (m MetaReducer) Apply(state AppState, a ir.Action, next RootReducer) AppState {
	return m(next)(state, a)
}

// FeatureMetaReducer wraps a single feature reducer.
type FeatureMetaReducer func(Reducer) Reducer

// ExtensionID names an extension. A store holds at most one extension per ID.
type ExtensionID string

// Extension sort orders. Lower values wrap further out.
const (
	SortOrderDefault   = 0
	SortOrderUndo      = 1
	SortOrderImmutable = 2
)

// Extension contributes a middleware to the store pipeline.
type Extension interface {
	ID() ExtensionID
	SortOrder() int
	Middleware() Middleware
}

// Starter is implemented by extensions that need the store once the
// pipeline is frozen.
type Starter interface {
	Start(s *Store) error
}

// Closer is implemented by extensions holding resources released on Shutdown.
type Closer interface {
	Close() error
}

// sortExtensions orders extensions by SortOrder, keeping insertion order for ties.
func sortExtensions(exts []Extension) []Extension {
	sorted := make([]Extension, len(exts))
	copy(sorted, exts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder() < sorted[j].SortOrder()
	})
	return sorted
}

// compose nests mws around base so that mws[0] is the outermost wrapper.
func compose(mws []Middleware, base RootReducer) RootReducer {
	r := base
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], r
		r = func(state AppState, a ir.Action) AppState {
			return mw.Apply(state, a, inner)
		}
	}
	return r
}

// withInitialState substitutes initial for a nil slice.
func withInitialState(r Reducer, initial any) Reducer {
	return func(state any, a ir.Action) any {
		if state == nil {
			state = initial
		}
		return r(state, a)
	}
}

// applyFeatureMetaReducers wraps r so that metas[0] is outermost.
func applyFeatureMetaReducers(r Reducer, metas []FeatureMetaReducer) Reducer {
	for i := len(metas) - 1; i >= 0; i-- {
		r = metas[i](r)
	}
	return r
}
