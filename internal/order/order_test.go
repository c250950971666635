package order_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordered/internal/order"
	"github.com/roach88/ordered/internal/order/memstore"
)

// seeded builds a store holding ids in scope with the given orders.
func seeded(scope string, ids []string, orders []int64) *memstore.Store {
	s := memstore.New()
	entries := make([]order.Entry, len(ids))
	for i := range ids {
		entries[i] = order.Entry{ID: ids[i], Order: orders[i]}
	}
	s.Seed(scope, entries...)
	return s
}

func record(t *testing.T, s *memstore.Store, id string) *memstore.Record {
	t.Helper()
	rec, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// add assigns an order and inserts a new record, like a full save would.
func add(t *testing.T, s *memstore.Store, scope, id string) *memstore.Record {
	t.Helper()
	ctx := context.Background()
	rec := &memstore.Record{ID: id, Scope: scope}
	require.NoError(t, order.AssignOrder(ctx, s, rec))
	require.NoError(t, s.Insert(ctx, rec))
	return rec
}

func requireContiguous(t *testing.T, s *memstore.Store, scope string) {
	t.Helper()
	require.NoError(t, order.Check(context.Background(), s, scope))
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "up", order.Up.String())
	assert.Equal(t, "down", order.Down.String())
	assert.Equal(t, "Direction(7)", order.Direction(7).String())
}

func TestParseDirection(t *testing.T) {
	d, err := order.ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, order.Up, d)

	d, err = order.ParseDirection("down")
	require.NoError(t, err)
	assert.Equal(t, order.Down, d)

	_, err = order.ParseDirection("sideways")
	assert.Error(t, err)
}

func TestAssignOrder_EmptyScope(t *testing.T) {
	s := memstore.New()
	rec := &memstore.Record{ID: "a", Scope: "s", Order: 42}

	require.NoError(t, order.AssignOrder(context.Background(), s, rec))
	assert.Equal(t, int64(0), rec.Order)
	assert.Equal(t, 0, s.Patches(), "assignment must not touch other records")
}

func TestAssignOrder_AfterMax(t *testing.T) {
	s := seeded("s", []string{"a", "b", "c"}, []int64{0, 4, 2})
	rec := &memstore.Record{ID: "d", Scope: "s"}

	require.NoError(t, order.AssignOrder(context.Background(), s, rec))
	assert.Equal(t, int64(5), rec.Order)
	assert.Equal(t, 0, s.Patches())
}

func TestAssignOrder_ScopesAreIndependent(t *testing.T) {
	s := seeded("other", []string{"x", "y"}, []int64{0, 1})
	rec := &memstore.Record{ID: "a", Scope: "s"}

	require.NoError(t, order.AssignOrder(context.Background(), s, rec))
	assert.Equal(t, int64(0), rec.Order)
}

func TestAssignOrder_NilRecord(t *testing.T) {
	err := order.AssignOrder(context.Background(), memstore.New(), nil)
	assert.ErrorIs(t, err, order.ErrNilRecord)
}

func TestAssignOrder_StoreFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := &memstore.Record{ID: "a", Scope: "s"}

	err := order.AssignOrder(context.Background(), failingStore{err: boom}, rec)
	assert.ErrorIs(t, err, boom)
}

func TestCompact_Gaps(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C", "D"}, []int64{2, 3, 5, 7})

	writes, err := order.Compact(context.Background(), s, "s")
	require.NoError(t, err)

	assert.Equal(t, 4, writes)
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2, "D": 3}, s.Orders("s"))
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.Sequence("s"))
}

func TestCompact_OnlyOutOfPlaceRecordsWritten(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C", "D"}, []int64{0, 1, 5, 6})

	writes, err := order.Compact(context.Background(), s, "s")
	require.NoError(t, err)

	assert.Equal(t, 2, writes)
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2, "D": 3}, s.Orders("s"))
}

func TestCompact_ContiguousScopeWritesNothing(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C"}, []int64{0, 1, 2})

	writes, err := order.Compact(context.Background(), s, "s")
	require.NoError(t, err)

	assert.Zero(t, writes)
	assert.Zero(t, s.Patches())
}

func TestCompact_EmptyScope(t *testing.T) {
	writes, err := order.Compact(context.Background(), memstore.New(), "s")
	require.NoError(t, err)
	assert.Zero(t, writes)
}

func TestCompact_Idempotent(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C", "D"}, []int64{3, 9, 10, 40})
	ctx := context.Background()

	_, err := order.Compact(ctx, s, "s")
	require.NoError(t, err)
	first := s.Orders("s")

	writes, err := order.Compact(ctx, s, "s")
	require.NoError(t, err)

	assert.Zero(t, writes)
	assert.Equal(t, first, s.Orders("s"))
}

func TestCompact_RepairsDuplicates(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C"}, []int64{0, 0, 1})

	_, err := order.Compact(context.Background(), s, "s")
	require.NoError(t, err)

	// Ties are broken by id.
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2}, s.Orders("s"))
}

func TestCompact_LeavesOtherScopesAlone(t *testing.T) {
	s := seeded("s", []string{"A", "B"}, []int64{3, 8})
	s.Seed("other", order.Entry{ID: "X", Order: 5})

	_, err := order.Compact(context.Background(), s, "s")
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"X": 5}, s.Orders("other"))
}

func TestCompact_StoreFailure(t *testing.T) {
	s := seeded("s", []string{"A", "B"}, []int64{3, 8})
	s.FailAfter(1)

	writes, err := order.Compact(context.Background(), s, "s")
	require.ErrorIs(t, err, memstore.ErrInjected)
	assert.Equal(t, 1, writes)
}

func TestMove_MiddleUp(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C", "D"}, []int64{0, 1, 2, 3})
	c := record(t, s, "C")

	moved, err := order.MoveUp(context.Background(), s, c)
	require.NoError(t, err)

	assert.True(t, moved)
	assert.Equal(t, map[string]int64{"A": 0, "B": 2, "C": 1, "D": 3}, s.Orders("s"))
	assert.Equal(t, []string{"A", "C", "B", "D"}, s.Sequence("s"))
	assert.Equal(t, int64(1), c.Order)
	// Two swap writes; compaction finds nothing to do.
	assert.Equal(t, 2, s.Patches())
}

func TestMove_MiddleDown(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C", "D"}, []int64{0, 1, 2, 3})
	b := record(t, s, "B")

	moved, err := order.MoveDown(context.Background(), s, b)
	require.NoError(t, err)

	assert.True(t, moved)
	assert.Equal(t, []string{"A", "C", "B", "D"}, s.Sequence("s"))
	assert.Equal(t, int64(2), b.Order)
}

func TestMove_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		id   string
		dir  order.Direction
	}{
		{"first up", "A", order.Up},
		{"last down", "C", order.Down},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded("s", []string{"A", "B", "C"}, []int64{0, 1, 2})
			rec := record(t, s, tt.id)
			before := s.Orders("s")

			moved, err := order.Move(context.Background(), s, rec, tt.dir)
			require.NoError(t, err)

			assert.False(t, moved)
			assert.Equal(t, before, s.Orders("s"))
			assert.Zero(t, s.Patches())
		})
	}
}

func TestMove_SingleRecord(t *testing.T) {
	s := seeded("s", []string{"A"}, []int64{0})
	rec := record(t, s, "A")

	for _, dir := range []order.Direction{order.Up, order.Down} {
		moved, err := order.Move(context.Background(), s, rec, dir)
		require.NoError(t, err)
		assert.False(t, moved)
	}
	assert.Zero(t, s.Patches())
}

func TestMove_SkipsGapsAndCompacts(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C"}, []int64{2, 5, 9})
	c := record(t, s, "C")

	moved, err := order.MoveUp(context.Background(), s, c)
	require.NoError(t, err)

	assert.True(t, moved)
	assert.Equal(t, map[string]int64{"A": 0, "C": 1, "B": 2}, s.Orders("s"))
	assert.Equal(t, int64(1), c.Order)
}

func TestMove_OnlyNeighborsInScope(t *testing.T) {
	s := seeded("s", []string{"A", "B"}, []int64{0, 2})
	s.Seed("other", order.Entry{ID: "X", Order: 1})
	b := record(t, s, "B")

	moved, err := order.MoveUp(context.Background(), s, b)
	require.NoError(t, err)

	assert.True(t, moved)
	assert.Equal(t, []string{"B", "A"}, s.Sequence("s"))
	assert.Equal(t, map[string]int64{"X": 1}, s.Orders("other"))
}

func TestMove_NilRecord(t *testing.T) {
	_, err := order.Move(context.Background(), memstore.New(), nil, order.Up)
	assert.ErrorIs(t, err, order.ErrNilRecord)
}

func TestMove_FailureAfterSwapKeepsOrderSet(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C"}, []int64{0, 1, 5})
	c := record(t, s, "C")
	// Both swap writes succeed, the compaction write fails.
	s.FailAfter(2)

	_, err := order.MoveUp(context.Background(), s, c)
	require.ErrorIs(t, err, memstore.ErrInjected)

	// Swap alone keeps the same set of values.
	assert.Equal(t, map[string]int64{"A": 0, "B": 5, "C": 1}, s.Orders("s"))
	assert.Equal(t, int64(5), c.Order, "in-memory order unchanged on failure")

	// A later compaction converges the scope.
	_, err = order.Compact(context.Background(), s, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, s.Sequence("s"))
	requireContiguous(t, s, "s")
}

func TestCheck(t *testing.T) {
	s := seeded("s", []string{"A", "B", "C"}, []int64{0, 1, 3})

	err := order.Check(context.Background(), s, "s")
	var gap *order.GapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "C", gap.ID)
	assert.Equal(t, int64(3), gap.Got)
	assert.Equal(t, int64(2), gap.Want)

	require.NoError(t, order.Check(context.Background(), s, "empty"))
}

// TestInvariant_RandomOperations drives random assigns and moves across two
// scopes and checks contiguity after every step.
func TestInvariant_RandomOperations(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	rng := rand.New(rand.NewSource(7))
	scopes := []string{"left", "right"}

	var recs []*memstore.Record
	for i := 0; i < 200; i++ {
		scope := scopes[rng.Intn(len(scopes))]
		if len(recs) == 0 || rng.Intn(4) == 0 {
			recs = append(recs, add(t, s, scope, fmt.Sprintf("r%03d", i)))
		} else {
			id := recs[rng.Intn(len(recs))].ID
			// Reload so the in-memory order is current.
			rec := record(t, s, id)
			dir := order.Direction(rng.Intn(2))
			_, err := order.Move(ctx, s, rec, dir)
			require.NoError(t, err)
			scope = rec.Scope
		}
		requireContiguous(t, s, scope)
	}

	total := 0
	for _, scope := range scopes {
		seq := s.Sequence(scope)
		total += len(seq)
		orders := s.Orders(scope)
		values := make([]int64, 0, len(orders))
		for _, v := range orders {
			values = append(values, v)
		}
		slices.Sort(values)
		for i, v := range values {
			assert.Equal(t, int64(i), v)
		}
	}
	assert.Equal(t, len(recs), total)
}

// failingStore fails every call.
type failingStore struct{ err error }

func (f failingStore) MaxOrder(context.Context, string) (int64, bool, error) {
	return 0, false, f.err
}

func (f failingStore) Neighbor(context.Context, string, int64, order.Direction) (order.Entry, bool, error) {
	return order.Entry{}, false, f.err
}

func (f failingStore) Entries(context.Context, string) ([]order.Entry, error) {
	return nil, f.err
}

func (f failingStore) PatchOrder(context.Context, string, int64) error {
	return f.err
}
