package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pausescan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testSummary builds a vhost summary with two findings and one unresolved host.
func testSummary(target string, started time.Time) *model.RunSummary {
	s := model.NewRunSummary(model.ModeVhost, target, "hosts.txt")
	s.StartedAt = started
	s.Candidates = 4
	s.Passes = 2
	s.Duration = 1500 * time.Millisecond

	outcomes := []model.Outcome{
		{Candidate: model.Candidate{URL: target, Host: "admin.example.com"}, StatusCode: 200, ContentLength: 512, Class: model.ClassSuccess, Attempt: 1},
		{Candidate: model.Candidate{URL: target, Host: "nope.example.com"}, StatusCode: 404, Class: model.ClassNotFound, Attempt: 1},
		{Candidate: model.Candidate{URL: target, Host: "dev.example.com"}, StatusCode: 429, Class: model.ClassRateLimited, RateLimited: true, Attempt: 1},
		{Candidate: model.Candidate{URL: target, Host: "dev.example.com"}, StatusCode: 300, ContentLength: 64, Class: model.ClassSuccess, Attempt: 2},
	}
	for _, o := range outcomes {
		s.Add(o)
	}
	s.Unresolved = []model.Candidate{{URL: target, Host: "slow.example.com"}}
	return s
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !errors.Is(statErr, os.ErrNotExist) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		id, err := db1.SaveRun(t.Context(), testSummary("http://10.0.0.1", time.Now()))
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetRun(t.Context(), id); err != nil {
			t.Errorf("expected run to persist: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestSaveAndGetRun tests that a saved summary round-trips through GetRun.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := testSummary("http://10.0.0.1", started)

	id, err := db.SaveRun(t.Context(), want)
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := db.GetRun(t.Context(), id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Mode != model.ModeVhost || got.Target != want.Target || got.Wordlist != "hosts.txt" {
		t.Errorf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, got.StartedAt)
	}
	if got.Attempts != 4 || got.Passes != 2 {
		t.Errorf("expected 4 attempts over 2 passes, got %d over %d", got.Attempts, got.Passes)
	}
	if got.Count(model.ClassSuccess) != 2 || got.Count(model.ClassRateLimited) != 1 {
		t.Errorf("unexpected counts: %v", got.Counts)
	}
	if len(got.Findings) != 2 || len(got.Unresolved) != 1 {
		t.Errorf("expected 2 findings and 1 unresolved, got %d and %d", len(got.Findings), len(got.Unresolved))
	}
}

// TestGetRunNotFound tests the missing-run error.
func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetRun(t.Context(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// TestSaveRunNil tests that a nil summary is rejected.
func TestSaveRunNil(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.SaveRun(t.Context(), nil); err == nil {
		t.Error("expected error for nil summary")
	}
}

// TestListRuns tests ordering and target filtering.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older, err := db.SaveRun(t.Context(), testSummary("http://a.example.com", base))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	newer, err := db.SaveRun(t.Context(), testSummary("http://a.example.com", base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if _, err := db.SaveRun(t.Context(), testSummary("http://b.example.com", base.Add(30*time.Minute))); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(t.Context(), "")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != newer {
			t.Errorf("expected newest run first, got id %d", runs[0].ID)
		}
		if runs[2].ID != older {
			t.Errorf("expected oldest run last, got id %d", runs[2].ID)
		}
	})

	t.Run("filtered by target", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(t.Context(), "http://a.example.com")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		rec := runs[0]
		if rec.Mode != model.ModeVhost || rec.Wordlist != "hosts.txt" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.Findings != 2 || rec.Unresolved != 1 || rec.Attempts != 4 || rec.Candidates != 4 {
			t.Errorf("unexpected counters: %+v", rec)
		}
		if rec.Duration != 1500*time.Millisecond {
			t.Errorf("expected 1.5s duration, got %v", rec.Duration)
		}
		if !rec.StartedAt.Equal(base.Add(time.Hour)) {
			t.Errorf("unexpected start time %v", rec.StartedAt)
		}
		if rec.Cancelled {
			t.Error("expected run not to be cancelled")
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(t.Context(), "http://c.example.com")
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
	})
}

// TestFindings tests that findings are stored per run in recording order.
func TestFindings(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	summary := testSummary("http://10.0.0.1", time.Now())
	summary.Cancelled = true

	id, err := db.SaveRun(t.Context(), summary)
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	findings, err := db.Findings(t.Context(), id)
	if err != nil {
		t.Fatalf("failed to get findings: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	first := findings[0]
	if first.RunID != id || first.Value != "admin.example.com" || first.Host != "admin.example.com" {
		t.Errorf("unexpected first finding: %+v", first)
	}
	if first.StatusCode != 200 || first.ContentLength != 512 || first.Attempt != 1 {
		t.Errorf("unexpected first finding values: %+v", first)
	}
	if findings[1].Value != "dev.example.com" || findings[1].Attempt != 2 {
		t.Errorf("unexpected second finding: %+v", findings[1])
	}

	runs, err := db.ListRuns(t.Context(), "")
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 1 || !runs[0].Cancelled {
		t.Errorf("expected one cancelled run, got %+v", runs)
	}

	none, err := db.Findings(t.Context(), id+100)
	if err != nil {
		t.Fatalf("failed to get findings: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no findings for unknown run, got %d", len(none))
	}
}

// TestParseTimestamp tests the accepted timestamp layouts.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2026-01-02T03:04:05.000000000Z", false},
		{"2026-01-02T03:04:05Z", false},
		{"2026-01-02 03:04:05", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, zero expected %v", tt.input, got, tt.zero)
			}
		})
	}
}
