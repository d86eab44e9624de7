package feature

import (
	"log/slog"
	"sync"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/extension"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/reactive"
)

// Source is implemented by FeatureStore and ComponentStore.
type Source[T any] interface {
	Select() reactive.Readable[T]
}

// slice is the state and update logic shared by both façades.
type slice[T any] struct {
	st      *engine.Store
	key     string
	id      string
	kind    ir.SetStateType
	initial T
	logger  *slog.Logger
	signal  *reactive.Computed[T]

	mu        sync.Mutex
	destroyed bool
	teardown  []func()
}

func newSlice[T any](st *engine.Store, key, id string, kind ir.SetStateType, initial T) *slice[T] {
	s := &slice[T]{
		st:      st,
		key:     key,
		id:      id,
		kind:    kind,
		initial: initial,
		logger:  st.Logger(),
	}
	s.signal = reactive.Map(st.StateCell(), func(state engine.AppState) T {
		return valueOf[T](state[key], initial)
	})
	return s
}

func (s *slice[T]) register(metas []engine.FeatureMetaReducer) error {
	return s.st.AddFeature(s.key, s.reduce,
		engine.WithInitialState(s.initial),
		engine.WithFeatureMetaReducers(metas...),
	)
}

// reduce accepts only set-state actions addressed to this instance.
func (s *slice[T]) reduce(state any, a ir.Action) any {
	if !a.IsSetStateFor(s.id) {
		return state
	}
	p, ok := a.Payload.(ir.SetStatePayload)
	if !ok {
		return state
	}
	return p.Resolve(state)
}

// Key returns the key of the slice in AppState.
func (s *slice[T]) Key() string { return s.key }

// ID returns the instance id carried by set-state actions.
func (s *slice[T]) ID() string { return s.id }

// State returns the current slice value.
func (s *slice[T]) State() T {
	return valueOf[T](s.st.State()[s.key], s.initial)
}

// Select returns the slice as a reactive value. Subscribers are notified
// only when the slice changes.
//
// Select panics with a FEATURE_DESTROYED *engine.ConfigError on a destroyed
// instance.
func (s *slice[T]) Select() reactive.Readable[T] {
	if err := s.checkAlive(); err != nil {
		panic(err)
	}
	return s.signal
}

// Update replaces the slice with v and returns the dispatched action, which
// is the handle for Undo.
func (s *slice[T]) Update(v T, name ...string) (ir.Action, error) {
	return s.dispatchSetState(ir.SetStatePayload{Value: v}, name)
}

// UpdateFn applies fn to the current slice at reduction time.
func (s *slice[T]) UpdateFn(fn func(T) T, name ...string) (ir.Action, error) {
	initial := s.initial
	return s.dispatchSetState(ir.SetStatePayload{
		Updater: func(current any) any {
			return fn(valueOf[T](current, initial))
		},
	}, name)
}

func (s *slice[T]) dispatchSetState(p ir.SetStatePayload, name []string) (ir.Action, error) {
	if err := s.checkAlive(); err != nil {
		return ir.Action{}, err
	}
	var n string
	if len(name) > 0 {
		n = name[0]
	}
	return s.st.Dispatch(ir.SetStateAction(s.kind, s.id, s.key, n, p))
}

// Undo reverts the update that produced handle.
// Returns an UNDO_NOT_INSTALLED config error without the Undo extension.
func (s *slice[T]) Undo(handle ir.Action) error {
	if err := s.checkAlive(); err != nil {
		return err
	}
	if !s.st.HasExtension(extension.UndoID) {
		return engine.NewConfigError(engine.ErrCodeUndoNotInstalled, s.key,
			"undo requires the undo extension")
	}
	_, err := s.st.Dispatch(ir.UndoAction(handle))
	return err
}

// Destroyed reports whether Destroy was called.
func (s *slice[T]) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// OnDestroy registers fn to run when the instance is destroyed. On an
// already destroyed instance fn runs immediately.
func (s *slice[T]) OnDestroy(fn func()) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		fn()
		return
	}
	s.teardown = append(s.teardown, fn)
	s.mu.Unlock()
}

func (s *slice[T]) checkAlive() error {
	if s.Destroyed() {
		return engine.NewConfigError(engine.ErrCodeFeatureDestroyed, s.key, "instance destroyed")
	}
	return nil
}

// markDestroyed flips the flag and runs teardown hooks. Returns false if the
// instance was already destroyed.
func (s *slice[T]) markDestroyed() bool {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return false
	}
	s.destroyed = true
	hooks := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return true
}

// valueOf converts a slice from AppState, substituting fallback when the
// slice is absent or of another type.
func valueOf[T any](v any, fallback T) T {
	if t, ok := v.(T); ok {
		return t
	}
	return fallback
}
