package feature

import (
	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// FeatureStore is a typed façade over one slice of a shared engine.Store.
type FeatureStore[T any] struct {
	*slice[T]
}

// Option configures a FeatureStore.
type Option func(*options)

type options struct {
	multi bool
	metas []engine.FeatureMetaReducer
}

// WithMulti allows several instances of the same feature: the slice key
// becomes "<key>-<instance id>".
func WithMulti() Option {
	return func(o *options) {
		o.multi = true
	}
}

// WithMetaReducers wraps the slice reducer, first outermost.
func WithMetaReducers(metas ...engine.FeatureMetaReducer) Option {
	return func(o *options) {
		o.metas = append(o.metas, metas...)
	}
}

// New registers a slice under key with initial as its state.
func New[T any](st *engine.Store, key string, initial T, opts ...Option) (*FeatureStore[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	id := st.NewID()
	if o.multi {
		key = key + "-" + id
	}

	f := &FeatureStore[T]{slice: newSlice(st, key, id, ir.SetStateFeature, initial)}
	if err := f.register(o.metas); err != nil {
		return nil, err
	}
	return f, nil
}

// Destroy removes the slice from the store and stops bound effects.
// Later operations fail with a FEATURE_DESTROYED config error.
func (f *FeatureStore[T]) Destroy() error {
	if !f.markDestroyed() {
		return nil
	}
	return f.st.RemoveFeature(f.key)
}
