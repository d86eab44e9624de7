package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/signalstore/internal/ir"
)

// TraceSnapshot is the golden form of a run: action types in seq order and
// the final summary. State hashes are left out so the files stay readable.
type TraceSnapshot struct {
	Scenario string
	Trace    []TraceEvent
	Final    Final
}

// toCanonicalMap converts the snapshot to the shapes ir.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		trace[i] = map[string]any{
			"seq":  event.Seq,
			"type": event.Type,
		}
	}

	ids := make([]any, len(s.Final.TodoIDs))
	for i, id := range s.Final.TodoIDs {
		ids[i] = id
	}

	return map[string]any{
		"scenario": s.Scenario,
		"trace":    trace,
		"final": map[string]any{
			"count":      s.Final.Count,
			"todo_ids":   ids,
			"cart_total": s.Final.CartTotal,
		},
	}
}

// MarshalGolden renders the canonical golden bytes of result.
func MarshalGolden(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		Scenario: scenarioName,
		Trace:    result.Trace,
		Final:    result.Final,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
