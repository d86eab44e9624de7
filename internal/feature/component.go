package feature

import (
	"log/slog"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// componentKey is the only slice key inside a component's private store.
const componentKey = "component"

// ComponentConfig configures the private store of a ComponentStore.
type ComponentConfig struct {
	// Extensions installed in the private store. Components get no
	// extensions implicitly.
	Extensions []engine.Extension

	// Logger for the private store. Default: slog.Default().
	Logger *slog.Logger
}

// ComponentStore is a typed slice living in its own private engine.Store,
// isolated from the application state.
type ComponentStore[T any] struct {
	*slice[T]
}

// NewComponent creates a component store holding initial.
func NewComponent[T any](initial T, cfg ComponentConfig) (*ComponentStore[T], error) {
	opts := []engine.StoreOption{}
	if cfg.Logger != nil {
		opts = append(opts, engine.WithLogger(cfg.Logger))
	}
	st := engine.New(opts...)
	for _, ext := range cfg.Extensions {
		if err := st.AddExtension(ext); err != nil {
			return nil, err
		}
	}

	c := &ComponentStore[T]{slice: newSlice(st, componentKey, st.NewID(), ir.SetStateComponent, initial)}
	if err := c.register(nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Store returns the private store.
func (c *ComponentStore[T]) Store() *engine.Store {
	return c.st
}

// Destroy shuts the private store down.
func (c *ComponentStore[T]) Destroy() error {
	if !c.markDestroyed() {
		return nil
	}
	return c.st.Shutdown()
}
