package engine

import "github.com/roach88/signalstore/internal/ir"

// registry maps feature keys to reducers in registration order.
//
// A registry is never modified after construction; add and remove return a
// new registry so the reduction in progress keeps the snapshot it started with.
type registry struct {
	keys     []string
	reducers map[string]Reducer
}

func newRegistry() *registry {
	return &registry{reducers: map[string]Reducer{}}
}

func (r *registry) has(key string) bool {
	_, ok := r.reducers[key]
	return ok
}

func (r *registry) add(key string, reducer Reducer) *registry {
	next := &registry{
		keys:     make([]string, 0, len(r.keys)+1),
		reducers: make(map[string]Reducer, len(r.reducers)+1),
	}
	next.keys = append(next.keys, r.keys...)
	next.keys = append(next.keys, key)
	for k, v := range r.reducers {
		next.reducers[k] = v
	}
	next.reducers[key] = reducer
	return next
}

func (r *registry) remove(key string) *registry {
	next := &registry{
		keys:     make([]string, 0, len(r.keys)),
		reducers: make(map[string]Reducer, len(r.reducers)),
	}
	for _, k := range r.keys {
		if k != key {
			next.keys = append(next.keys, k)
			next.reducers[k] = r.reducers[k]
		}
	}
	return next
}

// combine builds the root reducer over the registered features.
//
// Only registered keys appear in the result. A feature init action hands the
// feature a nil slice so a re-registered key starts from its initial state.
func (r *registry) combine() RootReducer {
	keys, reducers := r.keys, r.reducers
	return func(state AppState, a ir.Action) AppState {
		next := make(AppState, len(keys))
		for _, key := range keys {
			var prev any
			if a.Meta.Kind != ir.KindInit || a.Meta.FeatureKey != key {
				prev = state[key]
			}
			next[key] = reducers[key](prev, a)
		}
		return next
	}
}
