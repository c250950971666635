package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ordered/internal/order"
)

var (
	// ErrNotFound is returned when no record matches an id or reference.
	ErrNotFound = errors.New("record not found")

	// ErrAmbiguous is returned when an id prefix matches more than one record.
	ErrAmbiguous = errors.New("ambiguous record reference")

	// ErrInvalidRecord is returned when a full-lifecycle save fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is a stored entry kept in order within its scope.
type Record struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Order     int64     `json:"order"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Record) OrderID() string       { return r.ID }
func (r *Record) OrderScope() string    { return r.Scope }
func (r *Record) OrderValue() int64     { return r.Order }
func (r *Record) SetOrderValue(v int64) { r.Order = v }

var _ order.Orderable = (*Record)(nil)

// validate normalises rec in place and checks required fields.
func (r *Record) validate() error {
	r.Scope = NormalizeScope(r.Scope)
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}
	return nil
}

// Create persists a new record. It validates rec, generates a UUIDv7 id when
// rec.ID is empty, and assigns the initial order (one past the scope's
// highest, or 0 in an empty scope) in the same transaction as the insert.
// rec is updated in place.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("create: generate id: %w", err)
		}
		rec.ID = id.String()
	}

	now := s.now()
	created := *rec
	created.Revision = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	err := s.inTx(ctx, func(r records) error {
		if err := order.AssignOrder(ctx, r, &created); err != nil {
			return err
		}
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO records
			(id, scope, title, body, sort_order, revision, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			created.ID,
			created.Scope,
			created.Title,
			created.Body,
			created.Order,
			created.Revision,
			formatTime(created.CreatedAt),
			formatTime(created.UpdatedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	*rec = created
	s.logger.Debug("record created", "id", rec.ID, "scope", rec.Scope, "order", rec.Order)
	return nil
}

// Update saves rec's title and body. It bumps revision and updated_at.
// Scope and order are not editable through Update.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	if err := rec.validate(); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE records
		SET title = ?, body = ?, revision = revision + 1, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.Body, formatTime(now), rec.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", rec.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", rec.ID, ErrNotFound)
	}

	fresh, err := s.Get(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("update %s: reload: %w", rec.ID, err)
	}
	*rec = *fresh
	return nil
}

// Get retrieves a single record by id.
// Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope, title, body, sort_order, revision, created_at, updated_at
		FROM records
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// Resolve finds a record by full id or unique id prefix. The prefix is
// measured in characters, matching SQLite's substr.
func (s *Store) Resolve(ctx context.Context, ref string) (*Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("resolve: empty reference: %w", ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM records
		WHERE substr(id, 1, length(?)) = ?
		ORDER BY id COLLATE BINARY ASC
		LIMIT 2
	`, ref, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("resolve %q: scan: %w", ref, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}

	switch {
	case len(ids) == 0:
		return nil, fmt.Errorf("resolve %q: %w", ref, ErrNotFound)
	case len(ids) > 1 && ids[0] != ref:
		return nil, fmt.Errorf("resolve %q: %w", ref, ErrAmbiguous)
	}
	return s.Get(ctx, ids[0])
}

// List returns every record in scope in ascending order.
// Returns an empty slice (not nil) for an empty scope.
func (s *Store) List(ctx context.Context, scope string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, title, body, sort_order, revision, created_at, updated_at
		FROM records
		WHERE scope = ?
		ORDER BY sort_order ASC, id COLLATE BINARY ASC
	`, NormalizeScope(scope))
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", scope, err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", scope, err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %q: iterate: %w", scope, err)
	}
	return recs, nil
}

// ScopeInfo summarises one scope.
type ScopeInfo struct {
	Scope string `json:"scope"`
	Count int    `json:"count"`
}

// Scopes returns every non-empty scope sorted by name.
func (s *Store) Scopes(ctx context.Context) ([]ScopeInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, COUNT(*) FROM records
		GROUP BY scope
		ORDER BY scope COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("scopes: %w", err)
	}
	defer rows.Close()

	infos := []ScopeInfo{}
	for rows.Next() {
		var info ScopeInfo
		if err := rows.Scan(&info.Scope, &info.Count); err != nil {
			return nil, fmt.Errorf("scopes: scan: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scopes: iterate: %w", err)
	}
	return infos, nil
}

// Delete removes a record and compacts its scope in the same transaction,
// so the remaining records close the gap it leaves.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r records) error {
		var scope string
		err := r.q.QueryRowContext(ctx, `SELECT scope FROM records WHERE id = ?`, id).Scan(&scope)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := r.q.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return err
		}

		_, err = order.Compact(ctx, r, scope)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	s.logger.Debug("record deleted", "id", id)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec              Record
		created, updated string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Scope,
		&rec.Title,
		&rec.Body,
		&rec.Order,
		&rec.Revision,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}

	var err error
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
