package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateHash_IndependentOfMapOrder(t *testing.T) {
	a := map[string]any{"x": 1, "y": map[string]any{"p": "q", "r": "s"}}
	b := map[string]any{"y": map[string]any{"r": "s", "p": "q"}, "x": 1}

	ha, err := StateHash(a)
	require.NoError(t, err)
	hb, err := StateHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64, "SHA-256 hex is 64 characters")
}

func TestStateHash_ChangesWithState(t *testing.T) {
	assert.NotEqual(t,
		MustStateHash(map[string]any{"count": 1}),
		MustStateHash(map[string]any{"count": 2}),
	)
}

func TestStateHash_Unencodable(t *testing.T) {
	_, err := StateHash(map[string]any{"fn": func() {}})
	assert.Error(t, err)
}

func TestActionID_UniquePerSeq(t *testing.T) {
	id1 := ActionID("store-1", 1, "inc")
	id2 := ActionID("store-1", 2, "inc")
	id3 := ActionID("store-2", 1, "inc")

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, id1, ActionID("store-1", 1, "inc"))
	assert.Len(t, id1, 16)
}
