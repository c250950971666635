package order

import (
	"context"
	"errors"
	"fmt"
)

// ErrNilRecord is returned when an operation is handed a nil Orderable.
var ErrNilRecord = errors.New("order: nil record")

// Direction selects the neighbor a move swaps with.
type Direction int

const (
	// Up moves toward lower order values (toward the front).
	Up Direction = iota
	// Down moves toward higher order values (toward the back).
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("invalid direction %q: must be up or down", s)
	}
}

// Entry is the (identifier, order) pair of one record in a scope.
type Entry struct {
	ID    string
	Order int64
}

// Orderable is implemented by any entity whose records are kept in a dense
// relative order within a scope.
type Orderable interface {
	// OrderID returns the record's identifier in the store.
	OrderID() string
	// OrderScope returns the scope the record's order is relative to.
	OrderScope() string
	// OrderValue returns the record's current order.
	OrderValue() int64
	// SetOrderValue sets the record's in-memory order.
	SetOrderValue(int64)
}

// Store is the record store the ordering operations run against.
type Store interface {
	// MaxOrder returns the highest order in scope.
	// ok is false when the scope has no records.
	MaxOrder(ctx context.Context, scope string) (highest int64, ok bool, err error)

	// Neighbor returns the record adjacent to order in the given direction:
	// the largest order strictly below it for Up, the smallest strictly
	// above it for Down. ok is false at a boundary.
	Neighbor(ctx context.Context, scope string, order int64, dir Direction) (e Entry, ok bool, err error)

	// Entries returns every record in scope sorted by order ascending,
	// ties broken by ID.
	Entries(ctx context.Context, scope string) ([]Entry, error)

	// PatchOrder sets a record's order directly, bypassing record hooks.
	PatchOrder(ctx context.Context, id string, order int64) error
}

// Transactor is implemented by stores that can run a function against a
// transactional view of themselves. fn's Store must only be used inside fn.
// If fn returns an error the transaction is rolled back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// OrderLookup is implemented by stores that can read a single record's
// current order. Orderer uses it to refresh a record before moving it, so a
// stale in-memory value cannot drive the swap.
type OrderLookup interface {
	OrderOf(ctx context.Context, id string) (int64, error)
}
