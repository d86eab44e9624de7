package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/ir"
)

func TestRecord_ReadSessionOrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.Record(ctx, createTestEntry("s1", seq, "increment", "counter")))
	}
	require.NoError(t, s.Record(ctx, createTestEntry("s2", 1, "other", "")))

	entries, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, "s1", e.Session)
	}
}

func TestRecord_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestEntry("s1", 1, "increment", "counter")
	dup := createTestEntry("s1", 1, "decrement", "counter")
	require.NoError(t, s.Record(ctx, first))
	require.NoError(t, s.Record(ctx, dup))

	entries, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "increment", entries[0].ActionType)
}

func TestRecord_RequiresSession(t *testing.T) {
	s := createTestStore(t)
	err := s.Record(context.Background(), createTestEntry("", 1, "increment", ""))
	assert.Error(t, err)
}

func TestReadSession_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.ReadSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadFeature(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, createTestEntry("s1", 1, "init", "counter")))
	require.NoError(t, s.Record(ctx, createTestEntry("s1", 2, "init", "todos")))
	require.NoError(t, s.Record(ctx, createTestEntry("s1", 3, "set-state", "counter")))

	entries, err := s.ReadFeature(ctx, "s1", "counter")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(3), entries[1].Seq)
}

func TestListSessionsAndLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	last, err := s.GetLastSeq(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	require.NoError(t, s.Record(ctx, createTestEntry("b", 4, "x", "")))
	require.NoError(t, s.Record(ctx, createTestEntry("b", 9, "x", "")))
	require.NoError(t, s.Record(ctx, createTestEntry("a", 1, "x", "")))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Session{
		{Name: "a", Entries: 1, LastSeq: 1},
		{Name: "b", Entries: 2, LastSeq: 9},
	}, sessions)

	last, err = s.GetLastSeq(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(9), last)

	require.NoError(t, s.DeleteSession(ctx, "b"))
	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestNewEntry_CanonicalSnapshot(t *testing.T) {
	a := ir.NewAction("todos/add", map[string]any{"title": "b", "id": 1})
	a.Seq = 7
	a.ID = "abc"
	state := map[string]any{"todos": []any{"x"}, "counter": 2}

	e, err := NewEntry("s1", a, state)
	require.NoError(t, err)

	assert.Equal(t, int64(7), e.Seq)
	assert.Equal(t, "abc", e.ActionID)
	assert.Equal(t, `{"counter":2,"todos":["x"]}`, string(e.State))
	assert.Equal(t, ir.MustStateHash(state), e.StateHash)
	assert.Contains(t, string(e.Action), `"payload":{"id":1,"title":"b"}`)

	s := createTestStore(t)
	require.NoError(t, s.Record(context.Background(), e))
	entries, err := s.ReadSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e, entries[0])
}
