package order

import (
	"context"
	"fmt"
)

// AssignOrder sets rec's order to one past the highest order in its scope,
// or 0 when the scope is empty. It must be called before rec is first
// persisted; no other record is touched.
func AssignOrder(ctx context.Context, s Store, rec Orderable) error {
	if rec == nil {
		return ErrNilRecord
	}

	highest, ok, err := s.MaxOrder(ctx, rec.OrderScope())
	if err != nil {
		return fmt.Errorf("assign order: %w", err)
	}

	if !ok {
		rec.SetOrderValue(0)
		return nil
	}
	rec.SetOrderValue(highest + 1)
	return nil
}
