package extension

import (
	"log/slog"
	"sync"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// DefaultUndoBufferSize is the number of set-state actions that stay undoable.
const DefaultUndoBufferSize = 100

// PreImage is the slice value a set-state action replaced.
type PreImage struct {
	FeatureKey string
	FeatureID  string
	Previous   any
}

// UndoExtension makes set-state actions reversible.
//
// For every set-state action it keeps the pre-image of the targeted slice,
// keyed by action ID, in a FIFO buffer. An undo action referencing that ID
// restores the pre-image exactly once; the handle is inert afterwards.
// Undoing an unknown, evicted or already undone handle is a no-op.
type UndoExtension struct {
	base
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	order  []string
	images map[string]PreImage
}

// UndoOption configures an UndoExtension.
type UndoOption func(*UndoExtension)

// WithBufferSize sets how many set-state actions stay undoable.
func WithBufferSize(n int) UndoOption {
	return func(e *UndoExtension) {
		if n > 0 {
			e.size = n
		}
	}
}

// Undo creates the undo extension.
func Undo(opts ...UndoOption) *UndoExtension {
	e := &UndoExtension{
		base:   newBase(UndoID, engine.SortOrderUndo),
		size:   DefaultUndoBufferSize,
		logger: slog.Default(),
		images: map[string]PreImage{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start adopts the store logger.
func (e *UndoExtension) Start(s *engine.Store) error {
	e.logger = s.Logger()
	return nil
}

// Middleware returns the undo middleware.
func (e *UndoExtension) Middleware() engine.Middleware {
	return engine.MiddlewareFunc(e.apply)
}

func (e *UndoExtension) apply(state engine.AppState, a ir.Action, next engine.RootReducer) engine.AppState {
	switch a.Meta.Kind {
	case ir.KindSetState:
		prev, registered := state[a.Meta.FeatureKey]
		out := next(state, a)
		if registered && a.ID != "" {
			e.remember(a.ID, PreImage{
				FeatureKey: a.Meta.FeatureKey,
				FeatureID:  a.Meta.FeatureID,
				Previous:   prev,
			})
		}
		return out

	case ir.KindUndo:
		out := next(state, a)
		target, ok := a.UndoTarget()
		if !ok {
			return out
		}
		img, ok := e.take(target.ID)
		if !ok {
			e.logger.Debug("undo ignored: handle unknown or already undone",
				"target", target.Type,
				"target_id", target.ID,
			)
			return out
		}
		if _, registered := out[img.FeatureKey]; !registered {
			return out
		}
		restored := make(engine.AppState, len(out))
		for k, v := range out {
			restored[k] = v
		}
		restored[img.FeatureKey] = img.Previous
		return restored

	case ir.KindDestroy:
		out := next(state, a)
		e.forget(a.Meta.FeatureKey)
		return out
	}
	return next(state, a)
}

// Undoable reports whether the action with id can still be undone.
func (e *UndoExtension) Undoable(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.images[id]
	return ok
}

// Len returns the number of undoable actions held.
func (e *UndoExtension) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.images)
}

func (e *UndoExtension) remember(id string, img PreImage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.images[id] = img
	e.order = append(e.order, id)
	for len(e.order) > e.size {
		delete(e.images, e.order[0])
		e.order = e.order[1:]
	}
}

func (e *UndoExtension) take(id string) (PreImage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, ok := e.images[id]
	if !ok {
		return PreImage{}, false
	}
	delete(e.images, id)
	e.order = removeID(e.order, id)
	return img, true
}

func (e *UndoExtension) forget(featureKey string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.order[:0]
	for _, id := range e.order {
		if e.images[id].FeatureKey == featureKey {
			delete(e.images, id)
			continue
		}
		kept = append(kept, id)
	}
	e.order = kept
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
