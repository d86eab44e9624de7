package extension

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

func TestImmutableState_DetectsInPlaceMutation(t *testing.T) {
	ext := ImmutableState()
	s := setupStore(t, ext)

	todos := map[string]any{"title": "a"}
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(todos)))
	require.NoError(t, ext.Verify(s.State()))

	// Mutate the published slice.
	s.State()["slice"].(map[string]any)["title"] = "changed"

	var ie *ImmutabilityError
	require.True(t, errors.As(ext.Verify(s.State()), &ie))
	assert.Equal(t, "slice", ie.FeatureKey)
}

func TestImmutableState_SurfacesAsReducerError(t *testing.T) {
	s := setupStore(t, ImmutableState())

	slice := []any{"a"}
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(slice)))
	slice[0] = "b"

	_, err := s.Dispatch(ir.NewAction("noop", nil))
	require.Error(t, err)
	assert.True(t, engine.IsReducerError(err))

	var ie *ImmutabilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "slice", ie.FeatureKey)
	assert.Equal(t, "noop", ie.ActionType)

	// Reported once; the store keeps working.
	_, err = s.Dispatch(ir.NewAction("noop", nil))
	assert.NoError(t, err)
}

func TestImmutableState_ReplacedSlicesAreFine(t *testing.T) {
	s := setupStore(t, ImmutableState())
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState([]any{"a"})))

	dispatch(t, s, setState([]any{"a", "b"}))
	dispatch(t, s, setState([]any{"c"}))

	assert.Equal(t, []any{"c"}, s.State()["slice"])
}

func TestImmutableState_DetectsSliceReplacedInPublishedMap(t *testing.T) {
	s := setupStore(t, ImmutableState())
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState([]any{"a"})))

	s.State()["slice"] = []any{"tampered"}

	_, err := s.Dispatch(ir.NewAction("noop", nil))
	require.Error(t, err)
	assert.True(t, engine.IsReducerError(err))

	var ie *ImmutabilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "slice", ie.FeatureKey)

	_, err = s.Dispatch(ir.NewAction("noop", nil))
	assert.NoError(t, err)
}

func TestImmutableState_DetectsKeyAddedToPublishedMap(t *testing.T) {
	ext := ImmutableState()
	s := setupStore(t, ext)
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState(1)))

	s.State()["ghost"] = true

	var ie *ImmutabilityError
	require.True(t, errors.As(ext.Verify(s.State()), &ie))
	assert.Equal(t, "ghost", ie.FeatureKey)
}

func TestImmutableState_FingerprintsStateRestoredByUndo(t *testing.T) {
	s := setupStore(t, Undo(), ImmutableState())
	require.NoError(t, s.AddFeature("slice", sliceReducer, engine.WithInitialState([]any{"a"})))

	handle := dispatch(t, s, setState([]any{"b"}))
	dispatch(t, s, ir.UndoAction(handle))

	restored := s.State()["slice"].([]any)
	require.Equal(t, []any{"a"}, restored)
	restored[0] = "mutated"

	_, err := s.Dispatch(ir.NewAction("noop", nil))
	var ie *ImmutabilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "slice", ie.FeatureKey)
}
