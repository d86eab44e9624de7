package engine

import "log/slog"

// Config is applied once by Store.Configure.
type Config struct {
	// Reducers registers classic reducers, one per feature key.
	Reducers map[string]Reducer

	// MetaReducers wrap the root reducer outside every extension.
	MetaReducers []MetaReducer

	// Extensions are sorted by SortOrder and appended to the pipeline.
	Extensions []Extension

	// InitialState seeds the state before the root init action.
	InitialState AppState
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger for the store.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock sets the clock stamping action sequence numbers.
func WithClock(clock SeqClock) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithIDGenerator sets the generator for store and feature identifiers.
func WithIDGenerator(gen IDGenerator) StoreOption {
	return func(s *Store) {
		s.ids = gen
	}
}

// FeatureOption configures a feature registered with Store.AddFeature.
type FeatureOption func(*featureConfig)

type featureConfig struct {
	metaReducers []FeatureMetaReducer
	initialState any
	hasInitial   bool
}

// WithFeatureMetaReducers wraps the feature reducer with metas, the first
// being outermost.
func WithFeatureMetaReducers(metas ...FeatureMetaReducer) FeatureOption {
	return func(c *featureConfig) {
		c.metaReducers = append(c.metaReducers, metas...)
	}
}

// WithInitialState sets the value the feature reducer sees in place of a nil slice.
func WithInitialState(v any) FeatureOption {
	return func(c *featureConfig) {
		c.initialState = v
		c.hasInitial = true
	}
}
