package extension

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

const sliceID = "feature-1"

// sliceReducer accepts set-state actions for sliceID.
func sliceReducer(state any, a ir.Action) any {
	if a.IsSetStateFor(sliceID) {
		if p, ok := a.Payload.(ir.SetStatePayload); ok {
			return p.Resolve(state)
		}
	}
	return state
}

func setState(v any) ir.Action {
	return ir.SetStateAction(ir.SetStateFeature, sliceID, "slice", "", ir.SetStatePayload{Value: v})
}

func setupStore(t *testing.T, exts ...engine.Extension) *engine.Store {
	t.Helper()
	s := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithIDGenerator(engine.NewFixedGenerator("store-1")),
	)
	for _, ext := range exts {
		require.NoError(t, s.AddExtension(ext))
	}
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func dispatch(t *testing.T, s *engine.Store, a ir.Action) ir.Action {
	t.Helper()
	out, err := s.Dispatch(a)
	require.NoError(t, err)
	return out
}
