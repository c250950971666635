package order

import (
	"context"
	"fmt"
)

// Compact renumbers scope so that its records, taken in ascending order,
// carry 0, 1, 2, ... with no gaps and no duplicates. [2,3,5,7] becomes
// [0,1,2,3]. Records already in their slot are not written.
//
// It returns the number of records written.
func Compact(ctx context.Context, s Store, scope string) (int, error) {
	_, writes, err := compact(ctx, s, scope)
	return writes, err
}

// compact returns the scope's entries carrying their final order values
// along with the number of writes.
func compact(ctx context.Context, s Store, scope string) ([]Entry, int, error) {
	entries, err := s.Entries(ctx, scope)
	if err != nil {
		return nil, 0, fmt.Errorf("compact %q: read entries: %w", scope, err)
	}

	writes := 0
	last := int64(-1)
	for i := range entries {
		// On a duplicate-free scope this is exactly "order - last > 1".
		// Using != also repairs duplicates left by interleaved writers.
		if entries[i].Order != last+1 {
			if err := s.PatchOrder(ctx, entries[i].ID, last+1); err != nil {
				return nil, writes, fmt.Errorf("compact %q: patch %s: %w", scope, entries[i].ID, err)
			}
			entries[i].Order = last + 1
			writes++
		}
		last++
	}

	return entries, writes, nil
}
