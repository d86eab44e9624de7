package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/signalstore/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name filter (glob pattern)
	Golden string // golden directory
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Pass    bool     `json:"pass"`
	Updated bool     `json:"updated,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory against its golden trace",
		Long: `Run every *.yaml scenario in a directory. A scenario passes when its
expectations and assertions hold and its trace matches <golden>/<name>.golden.

The golden directory defaults to "golden" next to the scenarios directory.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  signalstore test ./testdata/scenarios
  signalstore test ./testdata/scenarios --filter "todos_*"
  signalstore test ./testdata/scenarios --update
  signalstore test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden directory (default: <scenarios-dir>/../golden)")

	return cmd
}

func runTest(opts *TestOptions, dir string, cmd *cobra.Command) error {
	ctx := contextOf(cmd)
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return out.CommandError(ErrCodeGeneric, fmt.Sprintf("invalid filter %q", opts.Filter), err)
		}
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return out.CommandError(ErrCodeLoadFailed, "failed to load scenarios", err)
	}
	if len(scenarios) == 0 {
		return out.CommandError(ErrCodeNotFound, fmt.Sprintf("no scenarios found in %s", dir), nil)
	}

	goldenDir := opts.Golden
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden")
	}
	if opts.Update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return out.CommandError(ErrCodeGeneric, "failed to create golden directory", err)
		}
	}

	tr := TestResult{Scenarios: []ScenarioResult{}}
	for _, sc := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, sc.Name); !ok {
				continue
			}
		}
		out.VerboseLog("running %s", sc.Name)

		result, err := harness.Run(ctx, sc, harness.WithLogger(logger))
		if err != nil {
			return out.CommandError(ErrCodeGeneric, fmt.Sprintf("scenario %s execution failed", sc.Name), err)
		}

		sr := ScenarioResult{Name: sc.Name, Pass: result.Pass, Errors: result.Errors}
		goldenErr := checkGolden(filepath.Join(goldenDir, sc.Name+".golden"), sc.Name, result, opts.Update)
		switch {
		case errors.Is(goldenErr, errGoldenUpdated):
			sr.Updated = true
		case goldenErr != nil:
			sr.Pass = false
			sr.Errors = append(sr.Errors, goldenErr.Error())
		}

		tr.Scenarios = append(tr.Scenarios, sr)
		tr.Total++
		if sr.Pass {
			tr.Passed++
		} else {
			tr.Failed++
		}
	}

	if tr.Total == 0 {
		return out.CommandError(ErrCodeNotFound, fmt.Sprintf("no scenarios match filter %q", opts.Filter), nil)
	}
	if tr.Failed > 0 {
		return out.Failure(ErrCodeFailed, fmt.Sprintf("%d of %d scenarios failed", tr.Failed, tr.Total), tr, formatTestText(tr))
	}
	return out.Success(tr, formatTestText(tr))
}

var errGoldenUpdated = errors.New("golden file updated")

// checkGolden compares result with the golden file at path, or rewrites the
// file when update is set.
func checkGolden(path, name string, result *harness.Result, update bool) error {
	got, err := harness.MarshalGolden(name, result)
	if err != nil {
		return fmt.Errorf("marshal golden: %w", err)
	}

	if update {
		if err := os.WriteFile(path, got, 0o644); err != nil {
			return fmt.Errorf("write golden: %w", err)
		}
		return errGoldenUpdated
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("golden file %s missing (run with --update)", path)
	}
	if err != nil {
		return fmt.Errorf("read golden: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		return fmt.Errorf("trace differs from %s", path)
	}
	return nil
}

func formatTestText(tr TestResult) string {
	var b strings.Builder
	for _, sr := range tr.Scenarios {
		mark := "✓"
		if !sr.Pass {
			mark = "✗"
		}
		suffix := ""
		if sr.Updated {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(&b, "%s %s%s\n", mark, sr.Name, suffix)
		for _, e := range sr.Errors {
			fmt.Fprintf(&b, "    %s\n", e)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total\n", tr.Passed, tr.Failed, tr.Total)
	return b.String()
}
