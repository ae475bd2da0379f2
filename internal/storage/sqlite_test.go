package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kalambet/reportlocator/internal/locator"
)

var ctx = context.Background()

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same directory and verifies
// no migration is applied twice.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if err := s1.SaveLookup(ctx, Lookup{CaseNumber: "X-1", Outcome: "found", Database: "caseA"}); err != nil {
		t.Fatalf("SaveLookup: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}

	got, err := s2.RecentLookups(ctx, 10)
	if err != nil {
		t.Fatalf("RecentLookups: %v", err)
	}
	if len(got) != 1 || got[0].CaseNumber != "X-1" {
		t.Errorf("lookups after reopen = %+v", got)
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Fatalf("versions = %v, want to start at 1", versions)
	}

	for _, idx := range []string{"idx_lookups_created", "idx_lookups_case_number"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found", idx)
		}
	}
}

func TestSaveAndGetLookup(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	want := Lookup{
		ID:         "lk-1",
		ScanID:     "scan-1",
		CaseNumber: "X-1",
		Outcome:    "found",
		Database:   "caseB",
		Probed:     2,
		DurationMs: 15,
		CreatedAt:  now,
	}
	if err := s.SaveLookup(ctx, want); err != nil {
		t.Fatalf("SaveLookup: %v", err)
	}

	got, err := s.GetLookup(ctx, "lk-1")
	if err != nil {
		t.Fatalf("GetLookup: %v", err)
	}
	if got.CaseNumber != want.CaseNumber || got.Outcome != want.Outcome || got.Database != want.Database {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.Probed != 2 || got.DurationMs != 15 || got.ScanID != "scan-1" {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestGetLookupNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetLookup(ctx, "missing"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecentLookupsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.SaveLookup(ctx, Lookup{
			ID:         fmt.Sprintf("lk-%d", i),
			CaseNumber: fmt.Sprintf("C-%d", i),
			Outcome:    "not_found",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveLookup %d: %v", i, err)
		}
	}

	got, err := s.RecentLookups(ctx, 3)
	if err != nil {
		t.Fatalf("RecentLookups: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"lk-4", "lk-3", "lk-2"} {
		if got[i].ID != want {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestLookupsForCase(t *testing.T) {
	s := openTestStore(t)

	for _, cn := range []string{"A", "B", "A"} {
		if err := s.SaveLookup(ctx, Lookup{CaseNumber: cn, Outcome: "not_found"}); err != nil {
			t.Fatalf("SaveLookup: %v", err)
		}
	}

	got, err := s.LookupsForCase(ctx, "A", 0)
	if err != nil {
		t.Fatalf("LookupsForCase: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	for _, l := range got {
		if l.ID == "" {
			t.Error("generated ID is empty")
		}
	}
}

func TestRecordLookupFromOutcome(t *testing.T) {
	s := openTestStore(t)

	var rec locator.Recorder = s
	err := rec.RecordLookup(ctx, locator.Outcome{
		ScanID:     "scan-9",
		CaseNumber: "X-1",
		Status:     locator.StatusFound,
		Database:   "caseB",
		Probed:     2,
		Duration:   42 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordLookup: %v", err)
	}

	got, err := s.RecentLookups(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("RecentLookups = %v, %v", got, err)
	}
	l := got[0]
	if l.Outcome != "found" || l.Database != "caseB" || l.DurationMs != 42 || l.ScanID != "scan-9" {
		t.Errorf("lookup = %+v", l)
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{-1: 20, 0: 20, 1: 1, 500: 500, 501: 500}
	for in, want := range tests {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
