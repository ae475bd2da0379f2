package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/reportlocator/internal/locator"
)

const maxLookupLimit = 500

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SaveLookup inserts l. An empty ID gets a fresh uuid and a zero CreatedAt is
// set to now.
func (s *Store) SaveLookup(ctx context.Context, l Lookup) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookups (id, scan_id, case_number, outcome, db_name, probed, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ScanID, l.CaseNumber, l.Outcome, l.Database, l.Probed, l.DurationMs,
		l.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving lookup: %w", err)
	}
	return nil
}

// RecordLookup stores a finished locate call. It satisfies locator.Recorder.
func (s *Store) RecordLookup(ctx context.Context, o locator.Outcome) error {
	return s.SaveLookup(ctx, Lookup{
		ScanID:     o.ScanID,
		CaseNumber: o.CaseNumber,
		Outcome:    string(o.Status),
		Database:   o.Database,
		Probed:     o.Probed,
		DurationMs: o.Duration.Milliseconds(),
	})
}

// RecentLookups returns up to limit lookups, newest first.
func (s *Store) RecentLookups(ctx context.Context, limit int) ([]Lookup, error) {
	return s.queryLookups(ctx, `
		SELECT id, scan_id, case_number, outcome, db_name, probed, duration_ms, created_at
		FROM lookups ORDER BY created_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
}

// LookupsForCase returns up to limit lookups of caseNumber, newest first.
func (s *Store) LookupsForCase(ctx context.Context, caseNumber string, limit int) ([]Lookup, error) {
	return s.queryLookups(ctx, `
		SELECT id, scan_id, case_number, outcome, db_name, probed, duration_ms, created_at
		FROM lookups WHERE case_number = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, caseNumber, clampLimit(limit))
}

// GetLookup returns the lookup with the given id or ErrNotFound.
func (s *Store) GetLookup(ctx context.Context, id string) (Lookup, error) {
	rows, err := s.queryLookups(ctx, `
		SELECT id, scan_id, case_number, outcome, db_name, probed, duration_ms, created_at
		FROM lookups WHERE id = ?`, id)
	if err != nil {
		return Lookup{}, err
	}
	if len(rows) == 0 {
		return Lookup{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) queryLookups(ctx context.Context, query string, args ...any) ([]Lookup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lookups: %w", err)
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		l, err := scanLookup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLookup(rows *sql.Rows) (Lookup, error) {
	var l Lookup
	var createdAt string
	if err := rows.Scan(&l.ID, &l.ScanID, &l.CaseNumber, &l.Outcome, &l.Database, &l.Probed, &l.DurationMs, &createdAt); err != nil {
		return Lookup{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Lookup{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	l.CreatedAt = t
	return l, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxLookupLimit {
		return maxLookupLimit
	}
	return limit
}
