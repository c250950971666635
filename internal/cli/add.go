package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ordered/internal/store"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Scope string
	Body  string
	ID    string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a record at the end of its scope",
		Long: `Create a record and place it after every existing record in its scope.

The first record in an empty scope gets position 0.

Examples:
  ordered add "Write release notes"
  ordered add "Fix login" --scope sprint-12 --body "see incident 42"
  ordered add "Pinned" --id pinned-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Scope, "scope", "s", "", "scope to add to (default from config)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "record body")
	cmd.Flags().StringVar(&opts.ID, "id", "", "explicit record id (default: generated UUIDv7)")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command, title string) error {
	ctx := context.Background()

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec := &store.Record{
		ID:    opts.ID,
		Scope: sess.scope(cmd, opts.Scope),
		Title: title,
		Body:  opts.Body,
	}
	if err := sess.store.Create(ctx, rec); err != nil {
		return sess.fail("failed to add record", err)
	}

	return sess.out.Emit(rec, func(w io.Writer) {
		fmt.Fprintf(w, "Added %s to %q at position %d\n", rec.ID, rec.Scope, rec.Order)
	})
}
