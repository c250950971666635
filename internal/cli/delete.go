package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// DeleteResult identifies a deleted record.
type DeleteResult struct {
	ID    string `json:"id"`
	Scope string `json:"scope"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and close the gap it leaves",
		Long: `Delete a record. The records after it move up one position.

Examples:
  ordered delete 0192f1c4
  ordered delete 0192f1c4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd, args[0])
		},
	}
}

func runDelete(opts *RootOptions, cmd *cobra.Command, ref string) error {
	ctx := context.Background()

	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec, err := sess.store.Resolve(ctx, ref)
	if err != nil {
		return sess.fail("failed to find record", err)
	}
	if err := sess.store.Delete(ctx, rec.ID); err != nil {
		return sess.fail("failed to delete record", err)
	}

	result := DeleteResult{ID: rec.ID, Scope: rec.Scope}
	return sess.out.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %s from %q\n", rec.ID, rec.Scope)
	})
}
