package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ordered/internal/order"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Scope string
	All   bool
}

// CheckResult reports whether one scope is contiguous.
type CheckResult struct {
	Scope   string `json:"scope"`
	OK      bool   `json:"ok"`
	Problem string `json:"problem,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that positions are exactly 0..N-1",
		Long: `Verify that a scope's positions are contiguous and start at 0.

Nothing is written. Exits with status 1 if any checked scope has a gap
or a duplicate; run compact to repair it.

Examples:
  ordered check
  ordered check --scope sprint-12
  ordered check --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope to check (default from config)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "check every scope")
	cmd.MarkFlagsMutuallyExclusive("scope", "all")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	scopes := []string{sess.scope(cmd, opts.Scope)}
	if opts.All {
		infos, err := sess.store.Scopes(ctx)
		if err != nil {
			return sess.fail("failed to list scopes", err)
		}
		scopes = make([]string, len(infos))
		for i, info := range infos {
			scopes[i] = info.Scope
		}
	}

	results := make([]CheckResult, 0, len(scopes))
	failed := 0
	for _, scope := range scopes {
		result := CheckResult{Scope: scope, OK: true}

		var gap *order.GapError
		err := sess.orderer.Check(ctx, scope)
		switch {
		case errors.As(err, &gap):
			result.OK = false
			result.Problem = gap.Error()
			failed++
		case err != nil:
			return sess.fail("failed to check scope", err)
		}
		results = append(results, result)
	}

	if sess.out.Format == "json" {
		if failed > 0 {
			_ = sess.out.Error(ErrCodeNotDense, "scopes not contiguous", results)
		} else if err := sess.out.Success(results); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.OK {
				fmt.Fprintf(w, "ok    %q\n", r.Scope)
			} else {
				fmt.Fprintf(w, "FAIL  %q: %s\n", r.Scope, r.Problem)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scopes not contiguous", failed, len(results)))
	}
	return nil
}
