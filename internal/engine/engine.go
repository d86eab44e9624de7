package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/reactive"
	"github.com/roach88/signalstore/internal/selector"
)

// Store is the state container: action queue, reducer registry, middleware
// pipeline and the reactive AppState cell.
//
// Thread-safety model:
//   - Dispatch, AddFeature, RemoveFeature: safe from any goroutine, including
//     from inside subscribers (the work is queued behind the current action);
//     a dispatch from another goroutine waits for its own reduction
//   - State, Subscribe, Select: safe from any goroutine
//   - Reducers and middleware run one action at a time, never concurrently
//
// INVARIANTS:
//   - actions are reduced in dispatch order, one at a time
//   - the pipeline never changes after initialization
//   - AppState only holds keys with a registered reducer
type Store struct {
	id     string
	logger *slog.Logger
	clock  SeqClock
	ids    IDGenerator
	queue  *actionQueue
	state  *reactive.Cell[AppState]
	// last holds the most recently reduced action; its subscribers form the
	// action stream.
	last *reactive.Cell[ir.Action]

	mu          sync.RWMutex
	reg         *registry
	root        RootReducer
	metas       []MetaReducer
	extensions  []Extension
	pipeline    []Middleware
	initialized bool
	configured  bool
	shutdown    bool
}

// New creates an uninitialized store. Call Configure, or AddFeature for the
// first time, before dispatching.
func New(opts ...StoreOption) *Store {
	s := &Store{
		logger: slog.Default(),
		clock:  NewClock(),
		ids:    UUIDGenerator{},
		state:  reactive.NewCell(AppState{}),
		last:   reactive.NewCell(ir.Action{}),
		reg:    newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = newActionQueue(s.stamp)
	s.id = s.ids.Generate()
	s.root = s.reg.combine()
	return s
}

// ID returns the store identifier used to derive action IDs.
func (s *Store) ID() string {
	return s.id
}

// NewID returns a fresh identifier from the store's generator.
func (s *Store) NewID() string {
	return s.ids.Generate()
}

// Logger returns the store logger.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

// AddExtension appends ext to the pipeline. Rejected once the store is initialized.
func (s *Store) AddExtension(ext Extension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return NewConfigError(ErrCodeExtensionAfterStart, "",
			fmt.Sprintf("extension %q added after the store was initialized", ext.ID()))
	}
	s.extensions = append(s.extensions, ext)
	return nil
}

// HasExtension reports whether an extension with id is installed.
func (s *Store) HasExtension(id ExtensionID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ext := range s.extensions {
		if ext.ID() == id {
			return true
		}
	}
	return false
}

// Configure applies cfg, freezes the pipeline and dispatches the root init action.
//
// Configure must run before any feature is added and at most once.
func (s *Store) Configure(cfg Config) error {
	s.mu.Lock()
	switch {
	case s.shutdown:
		s.mu.Unlock()
		return NewConfigError(ErrCodeStoreDestroyed, "", "store is shut down")
	case s.configured:
		s.mu.Unlock()
		return NewConfigError(ErrCodeAlreadyConfigured, "", "store already configured")
	case len(s.reg.keys) > 0 || s.initialized:
		s.mu.Unlock()
		return NewConfigError(ErrCodeConfigureAfterFeatures, "",
			"configure must be called before features are added")
	}

	s.configured = true
	s.metas = append(s.metas, cfg.MetaReducers...)
	s.extensions = append(s.extensions, cfg.Extensions...)
	for _, key := range sortedReducerKeys(cfg.Reducers) {
		s.reg = s.reg.add(key, cfg.Reducers[key])
	}
	s.mu.Unlock()

	if cfg.InitialState != nil {
		initial := make(AppState, len(cfg.InitialState))
		for k, v := range cfg.InitialState {
			initial[k] = v
		}
		s.state.Set(initial)
	}

	if err := s.initialize(); err != nil {
		return err
	}

	s.logger.Info("store configured",
		"store", s.id,
		"reducers", len(cfg.Reducers),
		"extensions", len(s.extensions),
	)

	_, err := s.Dispatch(ir.InitAction(""))
	return err
}

// initialize freezes the pipeline and starts extensions. Safe to call more
// than once; only the first call has an effect.
func (s *Store) initialize() error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.initialized = true

	exts := sortExtensions(s.extensions)
	s.extensions = exts
	pipeline := make([]Middleware, 0, len(s.metas)+len(exts))
	for _, m := range s.metas {
		pipeline = append(pipeline, m)
	}
	for _, ext := range exts {
		if mw := ext.Middleware(); mw != nil {
			pipeline = append(pipeline, mw)
		}
	}
	s.pipeline = pipeline
	s.root = compose(s.pipeline, s.reg.combine())
	s.mu.Unlock()

	for _, ext := range exts {
		if st, ok := ext.(Starter); ok {
			if err := st.Start(s); err != nil {
				return fmt.Errorf("start extension %q: %w", ext.ID(), err)
			}
		}
	}
	return nil
}

// Dispatch stamps a with a sequence number and ID, queues it and waits until
// it has been reduced.
//
// The returned action is the stamped one; it serves as the handle for undo.
// If a reducer panics while reducing a, the error is a *ReducerError and the
// state is unchanged. A dispatch from another goroutine while a drain is
// running blocks until the active drainer has reduced a, so a reducer or
// subscriber must not wait on such a dispatch. A reentrant dispatch, made from
// a reducer, middleware or subscriber on the draining goroutine, is reduced
// after the current action; it returns a nil error and reducer failures are
// logged instead.
func (s *Store) Dispatch(a ir.Action) (ir.Action, error) {
	s.mu.RLock()
	initialized, shutdown := s.initialized, s.shutdown
	s.mu.RUnlock()

	if shutdown || s.queue.Closed() {
		return a, NewConfigError(ErrCodeStoreDestroyed, a.Meta.FeatureKey, "dispatch after shutdown")
	}
	if !initialized {
		return a, NewConfigError(ErrCodeNotInitialized, a.Meta.FeatureKey,
			"dispatch before Configure or AddFeature")
	}

	reentrant := s.queue.DrainingOn(goroutineID())
	own := newPending(a, reentrant)
	if !s.queue.Enqueue(own) {
		return a, NewConfigError(ErrCodeStoreDestroyed, a.Meta.FeatureKey, "dispatch after shutdown")
	}
	stamped := own.action
	if reentrant {
		return stamped, nil
	}

	s.queue.Drain(func(p *pending) {
		err := s.reduce(p.action)
		if err != nil && p.detached {
			s.logger.Error("reducer failed",
				"action", p.action.Type,
				"seq", p.action.Seq,
				"error", err,
			)
		}
		p.finish(err)
	})

	<-own.done
	return stamped, own.err
}

// stamp assigns the next sequence number and the derived action ID.
func (s *Store) stamp(a *ir.Action) {
	a.Seq = s.clock.Next()
	a.ID = ir.ActionID(s.id, a.Seq, a.Type)
}

// reduce runs one action through the pipeline and publishes the result.
// A panic leaves the state untouched.
func (s *Store) reduce(a ir.Action) (err error) {
	s.mu.RLock()
	root := s.root
	s.mu.RUnlock()

	prev := s.state.Get()

	s.logger.Debug("processing action",
		"action", a.Type,
		"seq", a.Seq,
		"feature", a.Meta.FeatureKey,
	)

	next, err := safeReduce(root, prev, a)
	if err != nil {
		return err
	}
	if next == nil {
		next = AppState{}
	}
	s.state.Set(next)
	s.last.Set(a)
	return nil
}

func safeReduce(root RootReducer, prev AppState, a ir.Action) (next AppState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReducerError{Action: a, Cause: r}
		}
	}()
	return root(prev, a), nil
}

// AddFeature registers reducer under key and dispatches the feature init action.
// The first AddFeature on an unconfigured store initializes it.
func (s *Store) AddFeature(key string, reducer Reducer, opts ...FeatureOption) error {
	var fc featureConfig
	for _, opt := range opts {
		opt(&fc)
	}
	r := applyFeatureMetaReducers(reducer, fc.metaReducers)
	if fc.hasInitial {
		r = withInitialState(r, fc.initialState)
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return NewConfigError(ErrCodeStoreDestroyed, key, "store is shut down")
	}
	if s.reg.has(key) {
		s.mu.Unlock()
		return NewConfigError(ErrCodeDuplicateFeature, key, "feature key already registered")
	}
	s.reg = s.reg.add(key, r)
	if s.initialized {
		s.root = compose(s.pipeline, s.reg.combine())
	}
	s.mu.Unlock()

	if err := s.initialize(); err != nil {
		return err
	}

	s.logger.Info("feature registered", "store", s.id, "feature", key)

	_, err := s.Dispatch(ir.InitAction(key))
	return err
}

// RemoveFeature unregisters key and dispatches its destroy action, which
// drops the slice from AppState.
func (s *Store) RemoveFeature(key string) error {
	s.mu.Lock()
	if !s.reg.has(key) {
		s.mu.Unlock()
		return NewConfigError(ErrCodeUnknownFeature, key, "feature key not registered")
	}
	s.reg = s.reg.remove(key)
	s.root = compose(s.pipeline, s.reg.combine())
	s.mu.Unlock()

	s.logger.Info("feature removed", "store", s.id, "feature", key)

	_, err := s.Dispatch(ir.DestroyAction(key))
	return err
}

// HasFeature reports whether key is registered.
func (s *Store) HasFeature(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.has(key)
}

// Features returns the registered keys in registration order.
func (s *Store) Features() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.reg.keys))
	copy(keys, s.reg.keys)
	return keys
}

// State returns the current AppState. Callers must not modify it.
func (s *Store) State() AppState {
	return s.state.Get()
}

// StateCell exposes the AppState as a read-only reactive value.
func (s *Store) StateCell() reactive.Readable[AppState] {
	return s.state.ReadOnly()
}

// Subscribe calls fn with the new AppState after every reduced action.
func (s *Store) Subscribe(fn func(AppState)) (unsubscribe func()) {
	return reactive.Watch(s.StateCell(), fn)
}

// OnAction calls fn with every successfully reduced action, after the new
// AppState has been published to Subscribe callbacks. Actions fn dispatches
// are queued behind the current one.
func (s *Store) OnAction(fn func(ir.Action)) (unsubscribe func()) {
	return reactive.Watch(s.last.ReadOnly(), fn)
}

// Shutdown removes every feature, closes extensions and rejects further dispatches.
func (s *Store) Shutdown() error {
	s.mu.RLock()
	done, initialized := s.shutdown, s.initialized
	keys := append([]string(nil), s.reg.keys...)
	exts := s.extensions
	s.mu.RUnlock()

	if done {
		return nil
	}

	var firstErr error
	if initialized {
		for i := len(keys) - 1; i >= 0; i-- {
			if err := s.RemoveFeature(keys[i]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.queue.Close()

	for _, ext := range exts {
		if c, ok := ext.(Closer); ok {
			if err := c.Close(); err != nil {
				s.logger.Warn("extension close failed", "extension", ext.ID(), "error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	s.logger.Info("store shut down", "store", s.id)
	return firstErr
}

// Select derives a value from the whole AppState. Subscribers of the result
// are notified only when fn's output changes.
func Select[R any](s *Store, fn func(AppState) R) *reactive.Computed[R] {
	return reactive.Map(s.StateCell(), fn)
}

// SelectWith derives a value through a (typically memoized) selector.
func SelectWith[R any](s *Store, sel selector.Selector[AppState, R]) *reactive.Computed[R] {
	return reactive.Map(s.StateCell(), sel.Select)
}

func sortedReducerKeys(m map[string]Reducer) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
