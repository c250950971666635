package order

import (
	"context"
	"fmt"
	"log/slog"
)

// Orderer runs ordering operations against a Store with per-scope
// serialization.
//
// Each operation holds its scope's lock for its whole duration. If the
// store implements Transactor, the operation's reads and writes also run
// inside one store transaction, so a failure part way through a move rolls
// back the swap as well.
//
// Thread-safety: Orderer is safe for concurrent use.
type Orderer struct {
	store  Store
	locks  *ScopeLocks
	logger *slog.Logger
}

// Option configures an Orderer.
type Option func(*Orderer)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orderer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithScopeLocks shares a lock table between Orderers that wrap the same
// underlying records.
func WithScopeLocks(locks *ScopeLocks) Option {
	return func(o *Orderer) {
		if locks != nil {
			o.locks = locks
		}
	}
}

// New creates an Orderer over s.
func New(s Store, opts ...Option) *Orderer {
	o := &Orderer{
		store:  s,
		locks:  NewScopeLocks(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the wrapped store.
func (o *Orderer) Store() Store {
	return o.store
}

// Assign sets rec's initial order. See AssignOrder.
func (o *Orderer) Assign(ctx context.Context, rec Orderable) error {
	if rec == nil {
		return ErrNilRecord
	}
	return o.run(ctx, rec.OrderScope(), func(s Store) error {
		return AssignOrder(ctx, s, rec)
	})
}

// MoveUp moves rec one position toward the front of its scope.
func (o *Orderer) MoveUp(ctx context.Context, rec Orderable) (bool, error) {
	return o.Move(ctx, rec, Up)
}

// MoveDown moves rec one position toward the back of its scope.
func (o *Orderer) MoveDown(ctx context.Context, rec Orderable) (bool, error) {
	return o.Move(ctx, rec, Down)
}

// Move swaps rec with its neighbor in dir and compacts the scope.
// See the package-level Move for boundary and error behaviour.
//
// When the store implements OrderLookup, rec's order is re-read under the
// scope lock before the neighbor lookup.
func (o *Orderer) Move(ctx context.Context, rec Orderable, dir Direction) (bool, error) {
	if rec == nil {
		return false, ErrNilRecord
	}

	scope := rec.OrderScope()
	before := rec.OrderValue()

	var (
		moved  bool
		writes int
	)
	err := o.run(ctx, scope, func(s Store) error {
		if l, ok := s.(OrderLookup); ok {
			current, err := l.OrderOf(ctx, rec.OrderID())
			if err != nil {
				return fmt.Errorf("move %s %s: refresh order: %w", rec.OrderID(), dir, err)
			}
			rec.SetOrderValue(current)
		}

		var err error
		writes, moved, err = move(ctx, s, rec, dir)
		return err
	})
	if err != nil {
		rec.SetOrderValue(before)
		return false, err
	}

	if !moved {
		o.logger.Debug("move at boundary", "scope", scope, "id", rec.OrderID(), "direction", dir.String())
		return false, nil
	}
	o.logger.Debug("moved record",
		"scope", scope,
		"id", rec.OrderID(),
		"direction", dir.String(),
		"from", before,
		"to", rec.OrderValue(),
		"compact_writes", writes,
	)
	return true, nil
}

// Compact renumbers scope to 0..N-1. See the package-level Compact.
func (o *Orderer) Compact(ctx context.Context, scope string) (int, error) {
	var writes int
	err := o.run(ctx, scope, func(s Store) error {
		var err error
		writes, err = Compact(ctx, s, scope)
		return err
	})
	if err != nil {
		return 0, err
	}
	o.logger.Debug("compacted scope", "scope", scope, "writes", writes)
	return writes, nil
}

// Check reports whether scope satisfies the contiguity invariant.
// A non-nil *GapError describes the first offending record.
func (o *Orderer) Check(ctx context.Context, scope string) error {
	return o.run(ctx, scope, func(s Store) error {
		return Check(ctx, s, scope)
	})
}

func (o *Orderer) run(ctx context.Context, scope string, fn func(Store) error) error {
	unlock, err := o.locks.Lock(ctx, scope)
	if err != nil {
		return fmt.Errorf("lock scope %q: %w", scope, err)
	}
	defer unlock()

	if tx, ok := o.store.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(o.store)
}
