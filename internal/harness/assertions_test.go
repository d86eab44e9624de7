package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signalstore/internal/demo"
	"github.com/roach88/signalstore/internal/engine"
)

var sampleTrace = []TraceEvent{
	{Seq: 1, Type: "@signalstore/init"},
	{Seq: 2, Type: "@signalstore/counter/init"},
	{Seq: 3, Type: "@signalstore/counter/set-state/increment"},
	{Seq: 4, Type: "@signalstore/counter/set-state/increment"},
	{Seq: 5, Type: "@signalstore/counter/undo"},
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Action: "@signalstore/counter/undo"}))

	err := assertTraceContains(sampleTrace, Assertion{Action: "@signalstore/todos/init"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
	assert.Contains(t, err.Error(), "[5] @signalstore/counter/undo")
}

func TestAssertTraceOrder(t *testing.T) {
	ok := Assertion{Actions: []string{"@signalstore/init", "@signalstore/counter/set-state/increment", "@signalstore/counter/undo"}}
	assert.NoError(t, assertTraceOrder(sampleTrace, ok))

	reversed := Assertion{Actions: []string{"@signalstore/counter/undo", "@signalstore/counter/init"}}
	err := assertTraceOrder(sampleTrace, reversed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	missing := Assertion{Actions: []string{"@signalstore/init", "@signalstore/todos/init"}}
	err = assertTraceOrder(sampleTrace, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: @signalstore/todos/init")
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Action: "@signalstore/counter/set-state/increment", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Action: "@signalstore/todos/undo", Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Action: "@signalstore/counter/undo", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	state := engine.AppState{
		demo.CounterKey: demo.CounterState{Count: 3},
		demo.TodosKey:   demo.TodosState{Todos: []demo.Todo{{ID: "42", Title: "Buy milk"}}},
	}

	assert.NoError(t, assertFinalState(state, Assertion{Feature: demo.CounterKey, Expect: map[string]any{"count": 3}}))
	assert.NoError(t, assertFinalState(state, Assertion{
		Feature: demo.TodosKey,
		Expect: map[string]any{"todos": []any{map[string]any{
			"id": "42", "title": "Buy milk", "is_done": false, "is_business": false, "is_private": false,
		}}},
	}))

	err := assertFinalState(state, Assertion{Feature: demo.CounterKey, Expect: map[string]any{"count": 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counter.count = 4")

	err = assertFinalState(state, Assertion{Feature: "products", Expect: map[string]any{"search": ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feature products registered")
}

func TestCheckExpect(t *testing.T) {
	count, total := 3, 40.0
	final := Final{Count: 3, TodoIDs: []string{"42"}, CartTotal: 40}

	assert.Empty(t, checkExpect(final, nil))
	assert.Empty(t, checkExpect(final, &Expect{Count: &count, TodoIDs: []string{"42"}, CartTotal: &total}))

	wrong := 2
	errs := checkExpect(final, &Expect{Count: &wrong, TodoIDs: []string{}})
	assert.Len(t, errs, 2)
}
