package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
)

// AssertionError is a failed assertion with enough context to debug it.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Type)
		}
	}
	return buf.String()
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == a.Action {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s", a.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of a.Actions appear in
// order. Other actions may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int, len(a.Actions))
	for i, event := range trace {
		if _, seen := positions[event.Type]; !seen && slices.Contains(a.Actions, event.Type) {
			positions[event.Type] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState compares the listed fields of one feature slice with the
// JSON encoding of the slice. Values are compared in canonical form, so 3
// from YAML equals 3.0 from the JSON decoder.
func assertFinalState(state engine.AppState, a Assertion) error {
	slice, ok := state[a.Feature]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("feature %s registered", a.Feature),
			Actual:   fmt.Sprintf("features: %v", stateKeys(state)),
		}
	}

	raw, err := json.Marshal(slice)
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.Feature, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("feature %s to be an object", a.Feature),
			Actual:   string(raw),
		}
	}

	for _, key := range sortedMapKeys(a.Expect) {
		expected := a.Expect[key]
		actual, present := fields[key]
		if !present || !canonicalEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", a.Feature, key, expected),
				Actual:   fmt.Sprintf("%s.%s = %v", a.Feature, key, actual),
			}
		}
	}
	return nil
}

func canonicalEqual(a, b any) bool {
	ca, errA := ir.Snapshot(a)
	cb, errB := ir.Snapshot(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func stateKeys(state engine.AppState) []string {
	return sortedMapKeys(state)
}

// checkExpect compares the final summary with the expect clause.
func checkExpect(final Final, expect *Expect) []string {
	if expect == nil {
		return nil
	}

	var errs []string
	if expect.Count != nil && *expect.Count != final.Count {
		errs = append(errs, fmt.Sprintf("expect count: want %d, got %d", *expect.Count, final.Count))
	}
	if expect.TodoIDs != nil && !slices.Equal(expect.TodoIDs, final.TodoIDs) {
		errs = append(errs, fmt.Sprintf("expect todo_ids: want %v, got %v", expect.TodoIDs, final.TodoIDs))
	}
	if expect.CartTotal != nil && *expect.CartTotal != final.CartTotal {
		errs = append(errs, fmt.Sprintf("expect cart_total: want %g, got %g", *expect.CartTotal, final.CartTotal))
	}
	return errs
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, state engine.AppState) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(state, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
