// Package memstore is an in-memory order.Store used by tests and the
// scenario harness.
//
// It counts every PatchOrder call so "no writes" is observable, and can be
// told to fail after a number of patches to exercise error propagation.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/ordered/internal/order"
)

// ErrInjected is returned by PatchOrder once the configured failure point
// is reached.
var ErrInjected = errors.New("memstore: injected failure")

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("memstore: record not found")

// Record is a minimal orderable record.
type Record struct {
	ID    string
	Scope string
	Title string
	Order int64
}

func (r *Record) OrderID() string       { return r.ID }
func (r *Record) OrderScope() string    { return r.Scope }
func (r *Record) OrderValue() int64     { return r.Order }
func (r *Record) SetOrderValue(v int64) { r.Order = v }

type row struct {
	scope string
	title string
	order int64
}

type state map[string]row

// Store holds records in memory.
//
// Thread-safety: all methods are safe for concurrent use. Individual calls
// are atomic; sequences of calls are not unless run through InTx.
type Store struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	rows    state
	patches int
	// failAt is the 1-based patch number that fails; 0 disables.
	failAt int
}

// New creates an empty store.
func New() *Store {
	return &Store{rows: make(state)}
}

// Insert persists rec with the order it already carries. Use Create to
// assign the order and insert atomically.
func (s *Store) Insert(_ context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("insert: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[rec.ID]; exists {
		return fmt.Errorf("insert %s: duplicate id", rec.ID)
	}
	s.rows[rec.ID] = row{scope: rec.Scope, title: rec.Title, order: rec.Order}
	return nil
}

// Seed inserts records with explicit order values, bypassing assignment.
// Used to build gapped or duplicated scopes.
func (s *Store) Seed(scope string, entries ...order.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.rows[e.ID] = row{scope: scope, title: e.ID, order: e.Order}
	}
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &Record{ID: id, Scope: r.scope, Title: r.title, Order: r.order}, nil
}

// Delete removes a record. Its scope is left as is; Remove also compacts.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

// Scopes returns every scope holding at least one record, sorted.
func (s *Store) Scopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, r := range s.rows {
		seen[r.scope] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Sequence returns the ids in scope in ascending order.
func (s *Store) Sequence(scope string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.rows.entries(scope)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Orders returns the order values in scope keyed by id.
func (s *Store) Orders(scope string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64)
	for id, r := range s.rows {
		if r.scope == scope {
			out[id] = r.order
		}
	}
	return out
}

// Patches returns the number of PatchOrder calls made so far, including
// calls made inside transactions that were later rolled back.
func (s *Store) Patches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches
}

// ResetPatches zeroes the patch counter.
func (s *Store) ResetPatches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = 0
}

// FailAfter makes the (n+1)th PatchOrder call from now fail with
// ErrInjected. A negative n disables injection.
func (s *Store) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		s.failAt = 0
		return
	}
	s.failAt = s.patches + n + 1
}

// MaxOrder implements order.Store.
func (s *Store) MaxOrder(_ context.Context, scope string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.maxOrder(scope)
}

// Neighbor implements order.Store.
func (s *Store) Neighbor(_ context.Context, scope string, o int64, dir order.Direction) (order.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.neighbor(scope, o, dir)
}

// Entries implements order.Store.
func (s *Store) Entries(_ context.Context, scope string) ([]order.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.entries(scope), nil
}

// OrderOf implements order.OrderLookup.
func (s *Store) OrderOf(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.orderOf(id)
}

// PatchOrder implements order.Store.
func (s *Store) PatchOrder(_ context.Context, id string, o int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.countPatch(); err != nil {
		return err
	}
	return s.rows.patch(id, o)
}

// InTx implements order.Transactor. fn runs against a private copy of the
// records which replaces the store's contents only if fn returns nil.
// Transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(order.Store) error) error {
	return s.inTx(ctx, func(tx *txView) error { return fn(tx) })
}

// Create assigns rec the next order in its scope and inserts it within one
// transaction, so concurrent creates in a scope never share an order.
// rec is updated in place.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("create: empty id")
	}
	created := *rec
	err := s.inTx(ctx, func(tx *txView) error {
		if err := order.AssignOrder(ctx, tx, &created); err != nil {
			return err
		}
		return tx.insert(&created)
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.ID, err)
	}
	*rec = created
	return nil
}

// Remove deletes a record and compacts its scope within one transaction.
// It returns the number of order writes the compaction made.
func (s *Store) Remove(ctx context.Context, id string) (int, error) {
	var writes int
	err := s.inTx(ctx, func(tx *txView) error {
		r, ok := tx.rows[id]
		if !ok {
			return ErrNotFound
		}
		delete(tx.rows, id)
		tx.touch(id)
		n, err := order.Compact(ctx, tx, r.scope)
		writes = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("remove %s: %w", id, err)
	}
	return writes, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*txView) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := maps.Clone(s.rows)
	s.mu.Unlock()

	tx := &txView{parent: s, rows: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Apply only the rows the transaction touched so direct writes made
	// concurrently to other rows survive.
	for id := range tx.dirty {
		if r, ok := tx.rows[id]; ok {
			s.rows[id] = r
		} else {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *Store) countPatch() error {
	s.patches++
	if s.failAt != 0 && s.patches >= s.failAt {
		s.failAt = 0
		return ErrInjected
	}
	return nil
}

// txView is the order.Store handed to InTx callbacks.
type txView struct {
	parent *Store
	rows   state
	dirty  map[string]struct{}
}

func (t *txView) MaxOrder(_ context.Context, scope string) (int64, bool, error) {
	return t.rows.maxOrder(scope)
}

func (t *txView) Neighbor(_ context.Context, scope string, o int64, dir order.Direction) (order.Entry, bool, error) {
	return t.rows.neighbor(scope, o, dir)
}

func (t *txView) Entries(_ context.Context, scope string) ([]order.Entry, error) {
	return t.rows.entries(scope), nil
}

func (t *txView) OrderOf(_ context.Context, id string) (int64, error) {
	return t.rows.orderOf(id)
}

func (t *txView) PatchOrder(_ context.Context, id string, o int64) error {
	t.parent.mu.Lock()
	err := t.parent.countPatch()
	t.parent.mu.Unlock()
	if err != nil {
		return err
	}
	if err := t.rows.patch(id, o); err != nil {
		return err
	}
	t.touch(id)
	return nil
}

func (t *txView) insert(rec *Record) error {
	if _, exists := t.rows[rec.ID]; exists {
		return fmt.Errorf("insert %s: duplicate id", rec.ID)
	}
	t.rows[rec.ID] = row{scope: rec.Scope, title: rec.Title, order: rec.Order}
	t.touch(rec.ID)
	return nil
}

func (t *txView) touch(id string) {
	if t.dirty == nil {
		t.dirty = make(map[string]struct{})
	}
	t.dirty[id] = struct{}{}
}

func (st state) maxOrder(scope string) (int64, bool, error) {
	var (
		highest int64
		found   bool
	)
	for _, r := range st {
		if r.scope != scope {
			continue
		}
		if !found || r.order > highest {
			highest = r.order
			found = true
		}
	}
	return highest, found, nil
}

func (st state) neighbor(scope string, o int64, dir order.Direction) (order.Entry, bool, error) {
	var (
		best  order.Entry
		found bool
	)
	for _, e := range st.entries(scope) {
		switch dir {
		case order.Up:
			if e.Order < o {
				// entries are ascending; the last one below o wins.
				best, found = e, true
			}
		case order.Down:
			if e.Order > o && !found {
				best, found = e, true
			}
		default:
			return order.Entry{}, false, fmt.Errorf("neighbor: invalid direction %v", dir)
		}
	}
	return best, found, nil
}

func (st state) entries(scope string) []order.Entry {
	var out []order.Entry
	for id, r := range st {
		if r.scope == scope {
			out = append(out, order.Entry{ID: id, Order: r.order})
		}
	}
	slices.SortFunc(out, func(a, b order.Entry) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (st state) orderOf(id string) (int64, error) {
	r, ok := st[id]
	if !ok {
		return 0, fmt.Errorf("order of %s: %w", id, ErrNotFound)
	}
	return r.order, nil
}

func (st state) patch(id string, o int64) error {
	r, ok := st[id]
	if !ok {
		return fmt.Errorf("patch %s: %w", id, ErrNotFound)
	}
	r.order = o
	st[id] = r
	return nil
}
