package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Scope string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of a scope in order",
		Long: `List every record in a scope, lowest position first.

Examples:
  ordered list
  ordered list --scope sprint-12
  ordered list --scope sprint-12 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope to list (default from config)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	scope := sess.scope(cmd, opts.Scope)
	recs, err := sess.store.List(ctx, scope)
	if err != nil {
		return sess.fail("failed to list records", err)
	}

	return sess.out.Emit(recs, func(w io.Writer) {
		if len(recs) == 0 {
			fmt.Fprintf(w, "No records in scope %q\n", scope)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, rec := range recs {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", rec.Order, rec.ID, rec.Title)
		}
		tw.Flush()
	})
}
