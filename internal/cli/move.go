package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ordered/internal/order"
)

// MoveResult is the outcome of an up or down command.
type MoveResult struct {
	ID        string `json:"id"`
	Scope     string `json:"scope"`
	Direction string `json:"direction"`
	Moved     bool   `json:"moved"`
	Order     int64  `json:"order"`
}

// NewUpCommand creates the up command.
func NewUpCommand(rootOpts *RootOptions) *cobra.Command {
	return newMoveCommand(rootOpts, order.Up)
}

// NewDownCommand creates the down command.
func NewDownCommand(rootOpts *RootOptions) *cobra.Command {
	return newMoveCommand(rootOpts, order.Down)
}

func newMoveCommand(rootOpts *RootOptions, dir order.Direction) *cobra.Command {
	edge, toward := "first", "lower"
	if dir == order.Down {
		edge, toward = "last", "higher"
	}

	return &cobra.Command{
		Use:   dir.String() + " <id>",
		Short: fmt.Sprintf("Move a record one position %s", dir),
		Long: fmt.Sprintf(`Swap a record with its neighbour at the next %s position.

A record that is already %s in its scope stays where it is.
The record may be named by its full id or any unique prefix of it.

Examples:
  ordered %s 0192f1c4
  ordered %s 0192f1c4-7b3e-7d4a-9c55-0e2f1a3b4c5d --format json`, toward, edge, dir, dir),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, cmd, args[0], dir)
		},
	}
}

func runMove(opts *RootOptions, cmd *cobra.Command, ref string, dir order.Direction) error {
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

	moved, err := sess.orderer.Move(ctx, rec, dir)
	if err != nil {
		return sess.fail(fmt.Sprintf("failed to move record %s", dir), err)
	}

	result := MoveResult{
		ID:        rec.ID,
		Scope:     rec.Scope,
		Direction: dir.String(),
		Moved:     moved,
		Order:     rec.Order,
	}
	return sess.out.Emit(result, func(w io.Writer) {
		if !moved {
			edge := "first"
			if dir == order.Down {
				edge = "last"
			}
			fmt.Fprintf(w, "%s is already %s in %q\n", rec.ID, edge, rec.Scope)
			return
		}
		fmt.Fprintf(w, "Moved %s %s to position %d\n", rec.ID, dir, rec.Order)
	})
}
