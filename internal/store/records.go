package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ordered/internal/order"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// records runs the ordering queries against a database or a transaction.
type records struct {
	q querier
}

var (
	_ order.Store       = records{}
	_ order.OrderLookup = records{}
	_ order.Store       = (*Store)(nil)
	_ order.Transactor  = (*Store)(nil)
	_ order.OrderLookup = (*Store)(nil)
)

// NormalizeScope trims surrounding whitespace and applies Unicode NFC so a
// scope name has one stored form.
func NormalizeScope(scope string) string {
	return norm.NFC.String(strings.TrimSpace(scope))
}

func (r records) MaxOrder(ctx context.Context, scope string) (int64, bool, error) {
	var highest int64
	err := r.q.QueryRowContext(ctx, `
		SELECT sort_order FROM records
		WHERE scope = ?
		ORDER BY sort_order DESC
		LIMIT 1
	`, NormalizeScope(scope)).Scan(&highest)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("max order: %w", err)
	}
	return highest, true, nil
}

func (r records) Neighbor(ctx context.Context, scope string, o int64, dir order.Direction) (order.Entry, bool, error) {
	var query string
	switch dir {
	case order.Up:
		query = `
			SELECT id, sort_order FROM records
			WHERE scope = ? AND sort_order < ?
			ORDER BY sort_order DESC, id COLLATE BINARY DESC
			LIMIT 1
		`
	case order.Down:
		query = `
			SELECT id, sort_order FROM records
			WHERE scope = ? AND sort_order > ?
			ORDER BY sort_order ASC, id COLLATE BINARY ASC
			LIMIT 1
		`
	default:
		return order.Entry{}, false, fmt.Errorf("neighbor: invalid direction %v", dir)
	}

	var e order.Entry
	err := r.q.QueryRowContext(ctx, query, NormalizeScope(scope), o).Scan(&e.ID, &e.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Entry{}, false, nil
	}
	if err != nil {
		return order.Entry{}, false, fmt.Errorf("neighbor %s: %w", dir, err)
	}
	return e, true, nil
}

func (r records) Entries(ctx context.Context, scope string) ([]order.Entry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, sort_order FROM records
		WHERE scope = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, NormalizeScope(scope))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []order.Entry{}
	for rows.Next() {
		var e order.Entry
		if err := rows.Scan(&e.ID, &e.Order); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// PatchOrder writes sort_order only. revision and updated_at are untouched.
func (r records) PatchOrder(ctx context.Context, id string, o int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE records SET sort_order = ? WHERE id = ?`, o, id)
	if err != nil {
		return fmt.Errorf("patch order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch order %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("patch order %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r records) OrderOf(ctx context.Context, id string) (int64, error) {
	var o int64
	err := r.q.QueryRowContext(ctx, `SELECT sort_order FROM records WHERE id = ?`, id).Scan(&o)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("order of %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("order of %s: %w", id, err)
	}
	return o, nil
}

// MaxOrder implements order.Store.
func (s *Store) MaxOrder(ctx context.Context, scope string) (int64, bool, error) {
	return records{q: s.db}.MaxOrder(ctx, scope)
}

// Neighbor implements order.Store.
func (s *Store) Neighbor(ctx context.Context, scope string, o int64, dir order.Direction) (order.Entry, bool, error) {
	return records{q: s.db}.Neighbor(ctx, scope, o, dir)
}

// Entries implements order.Store.
func (s *Store) Entries(ctx context.Context, scope string) ([]order.Entry, error) {
	return records{q: s.db}.Entries(ctx, scope)
}

// PatchOrder implements order.Store. It is the raw write path: only
// sort_order changes.
func (s *Store) PatchOrder(ctx context.Context, id string, o int64) error {
	return records{q: s.db}.PatchOrder(ctx, id, o)
}

// OrderOf implements order.OrderLookup.
func (s *Store) OrderOf(ctx context.Context, id string) (int64, error) {
	return records{q: s.db}.OrderOf(ctx, id)
}
