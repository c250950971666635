package order

import (
	"context"
	"fmt"
)

// MoveUp moves rec one position toward the front of its scope.
func MoveUp(ctx context.Context, s Store, rec Orderable) (bool, error) {
	return Move(ctx, s, rec, Up)
}

// MoveDown moves rec one position toward the back of its scope.
func MoveDown(ctx context.Context, s Store, rec Orderable) (bool, error) {
	return Move(ctx, s, rec, Down)
}

// Move swaps rec with its immediate neighbor in dir and compacts the scope.
//
// When rec is already first (Up) or last (Down) nothing is written and
// Move returns false with a nil error. On success rec's in-memory order is
// updated to its value after compaction.
//
// Store errors are returned wrapped. A failure after the swap leaves the
// scope holding the same set of order values, which a later Compact
// converges.
func Move(ctx context.Context, s Store, rec Orderable, dir Direction) (bool, error) {
	if rec == nil {
		return false, ErrNilRecord
	}
	_, moved, err := move(ctx, s, rec, dir)
	return moved, err
}

func move(ctx context.Context, s Store, rec Orderable, dir Direction) (int, bool, error) {
	scope := rec.OrderScope()
	current := rec.OrderValue()

	neighbor, ok, err := s.Neighbor(ctx, scope, current, dir)
	if err != nil {
		return 0, false, fmt.Errorf("move %s %s: find neighbor: %w", rec.OrderID(), dir, err)
	}
	if !ok {
		return 0, false, nil
	}

	if err := s.PatchOrder(ctx, rec.OrderID(), neighbor.Order); err != nil {
		return 0, false, fmt.Errorf("move %s %s: swap: %w", rec.OrderID(), dir, err)
	}
	if err := s.PatchOrder(ctx, neighbor.ID, current); err != nil {
		return 0, false, fmt.Errorf("move %s %s: swap: %w", rec.OrderID(), dir, err)
	}

	entries, writes, err := compact(ctx, s, scope)
	if err != nil {
		return writes, false, fmt.Errorf("move %s %s: %w", rec.OrderID(), dir, err)
	}

	rec.SetOrderValue(neighbor.Order)
	for _, e := range entries {
		if e.ID == rec.OrderID() {
			rec.SetOrderValue(e.Order)
			break
		}
	}
	return writes, true, nil
}
