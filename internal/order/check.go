package order

import (
	"context"
	"fmt"
)

// GapError reports a scope whose order values are not exactly 0..N-1.
type GapError struct {
	Scope string
	// ID is the first record, in ascending order, not in its slot.
	ID string
	// Got is the record's order; Want is the slot it should occupy.
	Got  int64
	Want int64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("scope %q not contiguous: record %s has order %d, want %d", e.Scope, e.ID, e.Got, e.Want)
}

// Check verifies that scope satisfies the contiguity invariant without
// writing anything. It returns a *GapError on the first violation.
func Check(ctx context.Context, s Store, scope string) error {
	entries, err := s.Entries(ctx, scope)
	if err != nil {
		return fmt.Errorf("check %q: %w", scope, err)
	}
	for i, e := range entries {
		if e.Order != int64(i) {
			return &GapError{Scope: scope, ID: e.ID, Got: e.Order, Want: int64(i)}
		}
	}
	return nil
}
