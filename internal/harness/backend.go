package harness

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/ordered/internal/order"
	"github.com/roach88/ordered/internal/order/memstore"
	"github.com/roach88/ordered/internal/store"
	"github.com/roach88/ordered/internal/testutil"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Backend is a record store a scenario runs against.
type Backend interface {
	// Name returns the backend name.
	Name() string
	// Store returns the ordering view of the backend.
	Store() order.Store
	// Add creates a record through the full save path and returns its order.
	Add(ctx context.Context, scope, id string) (int64, error)
	// Seed sets explicit orders, creating missing records.
	Seed(ctx context.Context, scope string, orders map[string]int64) error
	// Record loads a record for moving.
	Record(ctx context.Context, id string) (order.Orderable, error)
	// Delete removes a record and compacts its scope.
	Delete(ctx context.Context, id string) error
	// Scopes lists non-empty scopes, sorted.
	Scopes(ctx context.Context) ([]string, error)
	// Close releases resources.
	Close() error
}

// NewBackend opens a fresh backend by name. The empty name selects memory.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", BackendMemory:
		return &memoryBackend{s: memstore.New()}, nil
	case BackendSQLite:
		st, err := store.Open(":memory:", store.WithClock(testutil.NewStepClock().Now))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return &sqliteBackend{s: st}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

type memoryBackend struct {
	s *memstore.Store
}

func (b *memoryBackend) Name() string       { return BackendMemory }
func (b *memoryBackend) Store() order.Store { return b.s }
func (b *memoryBackend) Close() error       { return nil }

func (b *memoryBackend) Add(ctx context.Context, scope, id string) (int64, error) {
	rec := &memstore.Record{ID: id, Scope: scope, Title: id}
	if err := b.s.Create(ctx, rec); err != nil {
		return 0, err
	}
	return rec.Order, nil
}

func (b *memoryBackend) Seed(_ context.Context, scope string, orders map[string]int64) error {
	for _, id := range slices.Sorted(maps.Keys(orders)) {
		b.s.Seed(scope, order.Entry{ID: id, Order: orders[id]})
	}
	return nil
}

func (b *memoryBackend) Record(ctx context.Context, id string) (order.Orderable, error) {
	rec, err := b.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *memoryBackend) Delete(ctx context.Context, id string) error {
	_, err := b.s.Remove(ctx, id)
	return err
}

func (b *memoryBackend) Scopes(context.Context) ([]string, error) {
	return b.s.Scopes(), nil
}

type sqliteBackend struct {
	s *store.Store
}

func (b *sqliteBackend) Name() string       { return BackendSQLite }
func (b *sqliteBackend) Store() order.Store { return b.s }
func (b *sqliteBackend) Close() error       { return b.s.Close() }

func (b *sqliteBackend) Add(ctx context.Context, scope, id string) (int64, error) {
	rec := &store.Record{ID: id, Scope: scope, Title: id}
	if err := b.s.Create(ctx, rec); err != nil {
		return 0, err
	}
	return rec.Order, nil
}

func (b *sqliteBackend) Seed(ctx context.Context, scope string, orders map[string]int64) error {
	for _, id := range slices.Sorted(maps.Keys(orders)) {
		if _, err := b.s.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
			if err := b.s.Create(ctx, &store.Record{ID: id, Scope: scope, Title: id}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := b.s.PatchOrder(ctx, id, orders[id]); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqliteBackend) Record(ctx context.Context, id string) (order.Orderable, error) {
	rec, err := b.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *sqliteBackend) Delete(ctx context.Context, id string) error {
	return b.s.Delete(ctx, id)
}

func (b *sqliteBackend) Scopes(ctx context.Context) ([]string, error) {
	infos, err := b.s.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Scope
	}
	return names, nil
}
