package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewScopesCommand creates the scopes command.
func NewScopesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List scopes and their record counts",
		Long: `List every scope that holds at least one record.

Examples:
  ordered scopes
  ordered scopes --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScopes(rootOpts, cmd)
		},
	}
}

func runScopes(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	infos, err := sess.store.Scopes(context.Background())
	if err != nil {
		return sess.fail("failed to list scopes", err)
	}

	return sess.out.Emit(infos, func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(w, "No scopes")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, info := range infos {
			fmt.Fprintf(tw, "%q\t%d\n", info.Scope, info.Count)
		}
		tw.Flush()
	})
}
