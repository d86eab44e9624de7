package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/signalstore/internal/extension"
	"github.com/roach88/signalstore/internal/harness"
	"github.com/roach88/signalstore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
	Initial  string
	Metrics  bool
	DevTools string
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string           `json:"scenario"`
	Session  string           `json:"session,omitempty"`
	Pass     bool             `json:"pass"`
	Actions  int              `json:"actions"`
	Final    harness.Final    `json:"final"`
	Errors   []string         `json:"errors,omitempty"`
	Metrics  map[string]int64 `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a fresh store",
		Long: `Run one scenario against a fresh store with the demo features and
print the final state summary.

With --db every action and the state it produced is recorded in the SQLite
trace log under --session (default: the scenario name). A previous recording
of the same session is replaced.

Exit codes:
  0 - Scenario passed
  1 - A step, expectation or assertion failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  signalstore run ./scenarios/counter_undo.yaml
  signalstore run ./scenarios/todos_optimistic.yaml --db ./trace.db
  signalstore run ./scenarios/counter_undo.yaml --initial ./seed.cue --metrics
  signalstore run ./scenarios/products_cart.yaml --devtools ws://localhost:8000/monitor`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace in this SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", "", "trace session name (default: scenario name)")
	cmd.Flags().StringVar(&opts.Initial, "initial", "", "CUE file overriding the scenario's initial data")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report action counts collected by the metrics extension")
	cmd.Flags().StringVar(&opts.DevTools, "devtools", "", "stream actions and states to a devtools monitor at this WebSocket URL")

	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	scenario, err := loadScenario(path, opts.Initial)
	if err != nil {
		return out.CommandError(ErrCodeLoadFailed, "failed to load scenario", err)
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Verbose {
		runOpts = append(runOpts, harness.WithExtensions(
			extension.Logger(logger, extension.WithLogLevel(slog.LevelDebug)),
		))
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		runOpts = append(runOpts, harness.WithExtensions(extension.Metrics(reg)))
	}

	session := ""
	if opts.Database != "" {
		session = opts.Session
		if session == "" {
			session = scenario.Name
		}
		db, err := store.Open(opts.Database)
		if err != nil {
			return out.CommandError(ErrCodeGeneric, "failed to open database", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.DeleteSession(ctx, session); err != nil {
			return out.CommandError(ErrCodeGeneric, "failed to reset session", err)
		}
		runOpts = append(runOpts, harness.WithSink(extension.NewTraceSink(db, session)))
		logger.Info("recording trace", "db", opts.Database, "session", session)
	}

	if opts.DevTools != "" {
		sink, err := extension.DialWebSocketSink(ctx, opts.DevTools)
		if err != nil {
			return out.CommandError(ErrCodeGeneric, "failed to connect to devtools monitor", err)
		}
		defer sink.Close()
		runOpts = append(runOpts, harness.WithSink(sink))
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return out.CommandError(ErrCodeGeneric, "scenario execution failed", err)
	}

	rr := RunResult{
		Scenario: scenario.Name,
		Session:  session,
		Pass:     result.Pass,
		Actions:  len(result.Trace),
		Final:    result.Final,
		Errors:   result.Errors,
	}
	if reg != nil {
		rr.Metrics, err = actionCounts(reg)
		if err != nil {
			return out.CommandError(ErrCodeGeneric, "failed to gather metrics", err)
		}
	}

	if !rr.Pass {
		return out.Failure(ErrCodeFailed, fmt.Sprintf("scenario %s failed", scenario.Name), rr, formatRunText(rr))
	}
	return out.Success(rr, formatRunText(rr))
}

// loadScenario loads path and applies the CUE initial-state override.
func loadScenario(path, initialPath string) (*harness.Scenario, error) {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	if initialPath != "" {
		initial, err := LoadInitial(initialPath)
		if err != nil {
			return nil, err
		}
		scenario.Initial = *initial
	}
	return scenario, nil
}

// actionCounts reads signalstore_actions_total per kind from reg.
func actionCounts(reg *prometheus.Registry) (map[string]int64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	for _, mf := range families {
		if mf.GetName() != "signalstore_actions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			kind := ""
			for _, label := range m.GetLabel() {
				if label.GetName() == "kind" {
					kind = label.GetValue()
				}
			}
			counts[kind] = int64(m.GetCounter().GetValue())
		}
	}
	return counts, nil
}

func formatRunText(rr RunResult) string {
	var b strings.Builder
	mark := "✓"
	if !rr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(&b, "%s %s (%d actions)\n", mark, rr.Scenario, rr.Actions)
	fmt.Fprintf(&b, "  count:      %d\n", rr.Final.Count)
	fmt.Fprintf(&b, "  todo_ids:   %v\n", rr.Final.TodoIDs)
	fmt.Fprintf(&b, "  cart_total: %g\n", rr.Final.CartTotal)
	if rr.Session != "" {
		fmt.Fprintf(&b, "  session:    %s\n", rr.Session)
	}
	for _, kind := range sortedKeys(rr.Metrics) {
		fmt.Fprintf(&b, "  actions[%s]: %d\n", kind, rr.Metrics[kind])
	}
	for _, e := range rr.Errors {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	return b.String()
}

// contextOf returns the command context, or Background outside Execute.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
