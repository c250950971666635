package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// CompactOptions holds flags for the compact command.
type CompactOptions struct {
	*RootOptions
	Scope string
	All   bool
}

// CompactResult reports the writes one scope needed.
type CompactResult struct {
	Scope  string `json:"scope"`
	Writes int    `json:"writes"`
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Renumber a scope to 0..N-1",
		Long: `Close gaps in a scope's positions without changing relative order.

A scope that is already contiguous needs no writes. With --all every
scope is compacted, with up to compact_workers scopes in flight. The
database has a single connection, so their transactions commit one
after another.

Examples:
  ordered compact
  ordered compact --scope sprint-12
  ordered compact --all --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope to compact (default from config)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "compact every scope")
	cmd.MarkFlagsMutuallyExclusive("scope", "all")

	return cmd
}

func runCompact(opts *CompactOptions, cmd *cobra.Command) error {
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

	results, err := compactScopes(ctx, sess, scopes)
	if err != nil {
		return sess.fail("failed to compact", err)
	}

	return sess.out.Emit(results, func(w io.Writer) {
		if len(results) == 0 {
			fmt.Fprintln(w, "No scopes to compact")
			return
		}
		for _, r := range results {
			fmt.Fprintf(w, "Compacted %q: %d writes\n", r.Scope, r.Writes)
		}
	})
}

// compactScopes compacts each scope with at most cfg.CompactWorkers in
// flight. The limit caps goroutines waiting on scope locks and the store;
// the SQLite store still serializes their transactions on its one
// connection. Results keep the order of scopes. The first failure cancels
// the scopes that have not started.
func compactScopes(ctx context.Context, sess *session, scopes []string) ([]CompactResult, error) {
	results := make([]CompactResult, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sess.cfg.CompactWorkers)

	for i, scope := range scopes {
		g.Go(func() error {
			writes, err := sess.orderer.Compact(gctx, scope)
			if err != nil {
				return err
			}
			results[i] = CompactResult{Scope: scope, Writes: writes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
