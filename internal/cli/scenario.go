package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ordered/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Backend   string
	GoldenDir string
	Update    bool
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	File    string   `json:"file"`
	Name    string   `json:"name"`
	Backend string   `json:"backend"`
	Pass    bool     `json:"pass"`
	Errors  []string `json:"errors,omitempty"`
}

// ScenarioSummary holds the outcome of a scenario run.
type ScenarioSummary struct {
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []ScenarioResult `json:"results"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file.yaml>...",
		Short: "Run ordering scenarios",
		Long: `Run YAML scenario files against a fresh in-memory or SQLite store.

Each scenario runs add, seed, move, compact and delete steps, then
checks the expected sequences and that every scope is contiguous.

With --golden, each result snapshot is compared against
<dir>/<scenario name>.golden. Use --update to rewrite those files.

Examples:
  ordered scenario testdata/scenarios/*.yaml
  ordered scenario move.yaml --backend sqlite
  ordered scenario testdata/scenarios/*.yaml --golden testdata/golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "override the scenario backend (memory|sqlite)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden snapshots to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots instead of comparing")

	return cmd
}

func runScenarios(opts *ScenarioOptions, cmd *cobra.Command, files []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	summary := ScenarioSummary{Results: []ScenarioResult{}}
	for _, file := range files {
		formatter.VerboseLog("Running %s", file)

		result, err := runScenarioFile(opts, file)
		if err != nil {
			if opts.Format == "json" {
				_ = formatter.Error(ErrCodeScenario, "scenario could not run", map[string]string{
					"file":  file,
					"error": err.Error(),
				})
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", file), err)
		}

		summary.Total++
		if result.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, result)
	}

	if opts.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range summary.Results {
			status := "PASS"
			if !r.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(w, "%s  %s (%s)\n", status, r.Name, r.Backend)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "      %s\n", e)
			}
		}
		fmt.Fprintf(w, "\n%d scenarios, %d passed, %d failed\n", summary.Total, summary.Passed, summary.Failed)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return nil
}

func runScenarioFile(opts *ScenarioOptions, file string) (ScenarioResult, error) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{}, err
	}
	if opts.Backend != "" {
		scenario.Backend = opts.Backend
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{}, err
	}

	out := ScenarioResult{
		File:    file,
		Name:    scenario.Name,
		Backend: result.Backend,
		Pass:    result.Pass,
		Errors:  result.Errors,
	}

	if opts.GoldenDir != "" {
		golden := filepath.Join(opts.GoldenDir, scenario.Name+".golden")
		snapshot := harness.Snapshot(scenario.Name, result)

		if opts.Update {
			if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
				return ScenarioResult{}, fmt.Errorf("create golden dir: %w", err)
			}
			if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
				return ScenarioResult{}, fmt.Errorf("write golden: %w", err)
			}
			return out, nil
		}

		want, err := os.ReadFile(golden)
		if err != nil {
			return ScenarioResult{}, fmt.Errorf("read golden: %w", err)
		}
		if !bytes.Equal(want, snapshot) {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("snapshot differs from %s", golden))
		}
	}

	return out, nil
}
