package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/signalstore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Feature  string // optional - only actions addressed to this feature
	States   bool   // include the state snapshot of every entry
}

// TraceEntry is one recorded action in the timeline.
type TraceEntry struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"`
	FeatureKey string          `json:"feature_key,omitempty"`
	StateHash  string          `json:"state_hash"`
	State      json.RawMessage `json:"state,omitempty"`
}

// TraceResult is the timeline of one session.
type TraceResult struct {
	Session  string         `json:"session"`
	Timeline []TraceEntry   `json:"timeline"`
	Stats    map[string]int `json:"stats"` // entries per feature key ("" for root actions)
}

// SessionList is the output of trace without --session.
type SessionList struct {
	Sessions []store.Session `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded action traces",
		Long: `Show the action timeline of a recorded session.

Without --session the recorded sessions are listed.

Examples:
  signalstore trace --db ./trace.db
  signalstore trace --db ./trace.db --session counter_undo
  signalstore trace --db ./trace.db --session todos_optimistic --feature todos --states
  signalstore trace --db ./trace.db --session counter_undo --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show")
	cmd.Flags().StringVar(&opts.Feature, "feature", "", "only actions addressed to this feature key")
	cmd.Flags().BoolVar(&opts.States, "states", false, "include state snapshots")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := contextOf(cmd)
	out := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, out)
	}

	var entries []store.Entry
	if opts.Feature != "" {
		entries, err = st.ReadFeature(ctx, opts.Session, opts.Feature)
	} else {
		entries, err = st.ReadSession(ctx, opts.Session)
	}
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "failed to read session", err)
	}

	result := TraceResult{
		Session:  opts.Session,
		Timeline: make([]TraceEntry, 0, len(entries)),
		Stats:    map[string]int{},
	}
	for _, e := range entries {
		te := TraceEntry{
			Seq:        e.Seq,
			Type:       e.ActionType,
			FeatureKey: e.FeatureKey,
			StateHash:  e.StateHash,
		}
		if opts.States {
			te.State = json.RawMessage(e.State)
		}
		result.Timeline = append(result.Timeline, te)
		result.Stats[e.FeatureKey]++
	}

	if len(result.Timeline) == 0 && opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "No entries found for session: %s\n", opts.Session)
		return nil
	}
	return out.Success(result, formatTraceText(result))
}

func listSessions(ctx context.Context, st *store.Store, out *OutputFormatter) error {
	sessions, err := st.ListSessions(ctx)
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "failed to list sessions", err)
	}

	var b strings.Builder
	if len(sessions) == 0 {
		b.WriteString("No sessions recorded.\n")
	}
	for _, s := range sessions {
		fmt.Fprintf(&b, "%-32s %4d entries  last seq %d\n", s.Name, s.Entries, s.LastSeq)
	}
	return out.Success(SessionList{Sessions: sessions}, b.String())
}

func formatTraceText(r TraceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n\n", r.Session)
	for _, e := range r.Timeline {
		fmt.Fprintf(&b, "[%3d] %-48s %s\n", e.Seq, e.Type, shortHash(e.StateHash))
		if len(e.State) > 0 {
			fmt.Fprintf(&b, "      %s\n", e.State)
		}
	}
	fmt.Fprintf(&b, "\n%d entries", len(r.Timeline))
	for _, key := range sortedKeys(r.Stats) {
		name := key
		if name == "" {
			name = "<root>"
		}
		fmt.Fprintf(&b, ", %s: %d", name, r.Stats[key])
	}
	b.WriteString("\n")
	return b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
