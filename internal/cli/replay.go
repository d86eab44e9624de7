package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/signalstore/internal/harness"
	"github.com/roach88/signalstore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string
	Initial  string
}

// Mismatch is one step where the replay diverged from the recording.
type Mismatch struct {
	Seq      int64  `json:"seq"`
	Field    string `json:"field"` // "type", "state_hash" or "entry"
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult is the output of the replay command.
type ReplayResult struct {
	Scenario      string     `json:"scenario"`
	Session       string     `json:"session"`
	Recorded      int        `json:"recorded"`
	Replayed      int        `json:"replayed"`
	Deterministic bool       `json:"deterministic"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and compare it with its recorded trace",
		Long: `Re-run a scenario on a fresh store and compare every step with the
session recorded by "run --db": the action type and the hash of the state it
produced must match at every seq.

Exit codes:
  0 - Replay matches the recording
  1 - Replay diverged
  2 - Command error (database not found, session empty, etc.)

Examples:
  signalstore replay ./scenarios/counter_undo.yaml --db ./trace.db
  signalstore replay ./scenarios/todos_optimistic.yaml --db ./trace.db --session nightly
  signalstore replay ./scenarios/counter_undo.yaml --db ./trace.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "recorded session (default: scenario name)")
	cmd.Flags().StringVar(&opts.Initial, "initial", "", "CUE file overriding the scenario's initial data")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := contextOf(cmd)
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	scenario, err := loadScenario(path, opts.Initial)
	if err != nil {
		return out.CommandError(ErrCodeLoadFailed, "failed to load scenario", err)
	}
	session := opts.Session
	if session == "" {
		session = scenario.Name
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "failed to open database", err)
	}
	defer st.Close()

	recorded, err := st.ReadSession(ctx, session)
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "failed to read session", err)
	}
	if len(recorded) == 0 {
		return out.CommandError(ErrCodeNotFound, fmt.Sprintf("no entries recorded for session %s", session), nil)
	}

	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger))
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "scenario execution failed", err)
	}

	rr := ReplayResult{
		Scenario:   scenario.Name,
		Session:    session,
		Recorded:   len(recorded),
		Replayed:   len(result.Trace),
		Mismatches: compareTrace(recorded, result.Trace),
	}
	rr.Deterministic = len(rr.Mismatches) == 0
	out.VerboseLog("compared %d recorded entries with %d replayed actions", rr.Recorded, rr.Replayed)

	if !rr.Deterministic {
		return out.Failure(ErrCodeDiverged, fmt.Sprintf("replay of %s diverged", session), rr, formatReplayText(rr))
	}
	return out.Success(rr, formatReplayText(rr))
}

// compareTrace pairs recorded entries with replayed events by position.
func compareTrace(recorded []store.Entry, replayed []harness.TraceEvent) []Mismatch {
	var mismatches []Mismatch
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(recorded):
			mismatches = append(mismatches, Mismatch{
				Seq: replayed[i].Seq, Field: "entry", Recorded: "<none>", Replayed: replayed[i].Type,
			})
			continue
		case i >= len(replayed):
			mismatches = append(mismatches, Mismatch{
				Seq: recorded[i].Seq, Field: "entry", Recorded: recorded[i].ActionType, Replayed: "<none>",
			})
			continue
		}

		rec, rep := recorded[i], replayed[i]
		if rec.ActionType != rep.Type {
			mismatches = append(mismatches, Mismatch{Seq: rec.Seq, Field: "type", Recorded: rec.ActionType, Replayed: rep.Type})
		}
		if rec.StateHash != rep.StateHash {
			mismatches = append(mismatches, Mismatch{Seq: rec.Seq, Field: "state_hash", Recorded: rec.StateHash, Replayed: rep.StateHash})
		}
	}
	return mismatches
}

func formatReplayText(rr ReplayResult) string {
	var b strings.Builder
	if rr.Deterministic {
		fmt.Fprintf(&b, "✓ %s: %d actions replayed identically\n", rr.Session, rr.Replayed)
		return b.String()
	}
	fmt.Fprintf(&b, "✗ %s: replay diverged (%d recorded, %d replayed)\n", rr.Session, rr.Recorded, rr.Replayed)
	for _, m := range rr.Mismatches {
		fmt.Fprintf(&b, "  seq %d %s: recorded %s, replayed %s\n", m.Seq, m.Field, m.Recorded, m.Replayed)
	}
	return b.String()
}
