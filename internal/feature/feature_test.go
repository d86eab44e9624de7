package feature

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/effect"
	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/extension"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/selector"
)

type counterState struct {
	Count int `json:"count"`
}

type todo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupStore(t *testing.T, exts ...engine.Extension) *engine.Store {
	t.Helper()
	s := engine.New(
		engine.WithLogger(quiet),
		engine.WithIDGenerator(engine.NewFixedGenerator("store-1", "f-1", "f-2", "f-3")),
	)
	for _, ext := range exts {
		require.NoError(t, s.AddExtension(ext))
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func increment(c counterState) counterState {
	return counterState{Count: c.Count + 1}
}

func TestFeatureStore_CounterWithUndo(t *testing.T) {
	st := setupStore(t, extension.Undo())
	counter, err := New(st, "counter", counterState{Count: 1})
	require.NoError(t, err)

	count := Select(counter, func(c counterState) int { return c.Count })

	_, err = counter.UpdateFn(increment, "increment")
	require.NoError(t, err)
	_, err = counter.UpdateFn(increment, "increment")
	require.NoError(t, err)
	third, err := counter.UpdateFn(increment, "increment")
	require.NoError(t, err)
	require.Equal(t, 4, count.Get())

	require.NoError(t, counter.Undo(third))
	assert.Equal(t, 3, count.Get())

	// Second undo of the same handle is a no-op.
	require.NoError(t, counter.Undo(third))
	assert.Equal(t, 3, count.Get())
}

func TestFeatureStore_UpdateActionShape(t *testing.T) {
	st := setupStore(t)
	counter, err := New(st, "counter", counterState{})
	require.NoError(t, err)

	a, err := counter.Update(counterState{Count: 9}, "reset")
	require.NoError(t, err)

	assert.Equal(t, "@signalstore/counter/set-state/reset", a.Type)
	assert.Equal(t, "f-1", a.Meta.FeatureID)
	assert.Equal(t, ir.SetStateFeature, a.Meta.SetStateType)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, counterState{Count: 9}, counter.State())
	assert.Equal(t, "counter", counter.Key())
	assert.Equal(t, "f-1", counter.ID())
}

func TestFeatureStore_UndoWithoutExtension(t *testing.T) {
	st := setupStore(t)
	counter, err := New(st, "counter", counterState{})
	require.NoError(t, err)
	handle, err := counter.UpdateFn(increment)
	require.NoError(t, err)

	err = counter.Undo(handle)
	assert.True(t, engine.IsConfigError(err, engine.ErrCodeUndoNotInstalled))
}

func TestFeatureStore_DuplicateKey(t *testing.T) {
	st := setupStore(t)
	_, err := New(st, "counter", counterState{})
	require.NoError(t, err)

	_, err = New(st, "counter", counterState{})
	assert.True(t, engine.IsConfigError(err, engine.ErrCodeDuplicateFeature))
}

func TestFeatureStore_MultiInstancesAreIsolated(t *testing.T) {
	st := setupStore(t)
	a, err := New(st, "counter", counterState{}, WithMulti())
	require.NoError(t, err)
	b, err := New(st, "counter", counterState{}, WithMulti())
	require.NoError(t, err)

	assert.Equal(t, "counter-f-1", a.Key())
	assert.Equal(t, "counter-f-2", b.Key())

	_, err = a.UpdateFn(increment)
	require.NoError(t, err)

	assert.Equal(t, 1, a.State().Count)
	assert.Equal(t, 0, b.State().Count)
}

func TestFeatureStore_SelectNotifiesOnlyForOwnSlice(t *testing.T) {
	st := setupStore(t)
	counter, err := New(st, "counter", counterState{})
	require.NoError(t, err)
	todos, err := New(st, "todos", []todo{})
	require.NoError(t, err)

	notified := 0
	stop := counter.Select().Subscribe(func() { notified++ })
	defer stop()

	_, err = todos.Update([]todo{{ID: "1", Title: "a"}})
	require.NoError(t, err)
	assert.Equal(t, 0, notified)

	_, err = counter.UpdateFn(increment)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestFeatureStore_SelectWithMemoizedSelector(t *testing.T) {
	st := setupStore(t)
	todos, err := New(st, "todos", []todo{{ID: "1", Title: "a"}})
	require.NoError(t, err)

	titles := selector.Create1(
		selector.Identity[[]todo](),
		func(ts []todo) []string {
			out := make([]string, len(ts))
			for i, td := range ts {
				out[i] = td.Title
			}
			return out
		},
	)
	view := SelectWith(todos, titles)

	assert.Equal(t, []string{"a"}, view.Get())
	_, err = todos.UpdateFn(func(ts []todo) []todo {
		return append(append([]todo{}, ts...), todo{ID: "2", Title: "b"})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, view.Get())
	assert.Equal(t, 2, titles.Recomputations())
}

func TestFeatureStore_Destroy(t *testing.T) {
	st := setupStore(t)
	counter, err := New(st, "counter", counterState{Count: 3})
	require.NoError(t, err)

	stopped := false
	counter.OnDestroy(func() { stopped = true })

	require.NoError(t, counter.Destroy())
	assert.True(t, counter.Destroyed())
	assert.True(t, stopped)
	assert.False(t, st.HasFeature("counter"))
	assert.Equal(t, counterState{Count: 3}, counter.State(), "a destroyed slice reads as its initial state")

	_, err = counter.UpdateFn(increment)
	assert.True(t, engine.IsConfigError(err, engine.ErrCodeFeatureDestroyed))
	assert.NoError(t, counter.Destroy(), "second Destroy is a no-op")
	assert.Panics(t, func() { counter.Select() })

	late := Effect(counter, func(ctx context.Context, n int) error { return nil })
	assert.True(t, late.Stopped(), "effects bound after destroy start stopped")

	// The key is free again.
	again, err := New(st, "counter", counterState{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, again.State().Count)
}

func TestFeatureStore_MetaReducers(t *testing.T) {
	st := setupStore(t)
	var seen []string
	trace := engine.FeatureMetaReducer(func(next engine.Reducer) engine.Reducer {
		return func(state any, a ir.Action) any {
			seen = append(seen, a.Type)
			return next(state, a)
		}
	})

	counter, err := New(st, "counter", counterState{}, WithMetaReducers(trace))
	require.NoError(t, err)
	_, err = counter.UpdateFn(increment, "increment")
	require.NoError(t, err)

	assert.Equal(t, []string{"@signalstore/counter/init", "@signalstore/counter/set-state/increment"}, seen)
}

func TestComponentStore_PrivateState(t *testing.T) {
	undo := extension.Undo()
	c, err := NewComponent(counterState{Count: 1}, ComponentConfig{
		Extensions: []engine.Extension{undo},
		Logger:     quiet,
	})
	require.NoError(t, err)
	defer c.Destroy()

	handle, err := c.UpdateFn(increment, "increment")
	require.NoError(t, err)
	assert.Equal(t, ir.SetStateComponent, handle.Meta.SetStateType)
	assert.Equal(t, 2, c.State().Count)
	assert.Equal(t, []string{"component"}, c.Store().Features())

	require.NoError(t, c.Undo(handle))
	assert.Equal(t, 1, c.State().Count)
}

func TestComponentStore_NoImplicitExtensions(t *testing.T) {
	c, err := NewComponent(0, ComponentConfig{Logger: quiet})
	require.NoError(t, err)

	handle, err := c.Update(5)
	require.NoError(t, err)
	assert.True(t, engine.IsConfigError(c.Undo(handle), engine.ErrCodeUndoNotInstalled))

	require.NoError(t, c.Destroy())
	_, err = c.Update(6)
	assert.True(t, engine.IsConfigError(err, engine.ErrCodeFeatureDestroyed))
}

func TestEffect_StoppedOnDestroy(t *testing.T) {
	st := setupStore(t)
	counter, err := New(st, "counter", counterState{})
	require.NoError(t, err)

	e := Effect(counter, func(ctx context.Context, n int) error {
		_, err := counter.UpdateFn(func(c counterState) counterState {
			return counterState{Count: c.Count + n}
		})
		return err
	}, effect.WithLogger(quiet))

	e.Run(2)
	require.NoError(t, e.Wait())
	assert.Equal(t, 2, counter.State().Count)

	require.NoError(t, counter.Destroy())
	assert.True(t, e.Stopped())
	assert.False(t, e.Run(1))
}

func TestOptimistic_ConfirmAndRevert(t *testing.T) {
	st := setupStore(t, extension.Undo())
	todos, err := New(st, "todos", []todo{{ID: "1", Title: "a"}})
	require.NoError(t, err)

	add := func(ts []todo) []todo {
		return append(append([]todo{}, ts...), todo{ID: "tmp-1", Title: "b"})
	}
	replaceTmp := func(ts []todo, id string) []todo {
		out := make([]todo, len(ts))
		for i, td := range ts {
			if td.ID == "tmp-1" {
				td.ID = id
			}
			out[i] = td
		}
		return out
	}

	id, err := Optimistic(context.Background(), todos, "create", add,
		func(context.Context) (string, error) { return "42", nil },
		replaceTmp,
	)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, []todo{{ID: "1", Title: "a"}, {ID: "42", Title: "b"}}, todos.State())

	boom := errors.New("server rejected")
	_, err = Optimistic(context.Background(), todos, "create", add,
		func(context.Context) (string, error) { return "", boom },
		replaceTmp,
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []todo{{ID: "1", Title: "a"}, {ID: "42", Title: "b"}}, todos.State())
}
