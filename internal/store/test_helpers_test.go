package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createRecords creates one record per title in scope, in order.
func createRecords(t *testing.T, s *Store, scope string, titles ...string) []*Record {
	t.Helper()
	recs := make([]*Record, len(titles))
	for i, title := range titles {
		rec := &Record{ID: title, Scope: scope, Title: title}
		require.NoError(t, s.Create(context.Background(), rec))
		recs[i] = rec
	}
	return recs
}

// seedOrders overwrites sort_order for the given ids, building gapped scopes.
func seedOrders(t *testing.T, s *Store, orders map[string]int64) {
	t.Helper()
	for id, o := range orders {
		_, err := s.db.Exec(`UPDATE records SET sort_order = ? WHERE id = ?`, o, id)
		require.NoError(t, err)
	}
}

// sequence returns the ids of scope in ascending order.
func sequence(t *testing.T, s *Store, scope string) []string {
	t.Helper()
	recs, err := s.List(context.Background(), scope)
	require.NoError(t, err)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// orders returns sort_order by id for scope.
func orders(t *testing.T, s *Store, scope string) map[string]int64 {
	t.Helper()
	recs, err := s.List(context.Background(), scope)
	require.NoError(t, err)
	out := make(map[string]int64, len(recs))
	for _, r := range recs {
		out[r.ID] = r.Order
	}
	return out
}
