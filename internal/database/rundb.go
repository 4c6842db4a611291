package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pausescan/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "pausescan.db"

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunDB provides SQLite-based storage for run summaries.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// With CreateIfNotExists unset, a missing database is an error.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create the file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

// Close closes the database connection.
func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables() error {
	schema := `
	-- One row per finished run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		target TEXT NOT NULL,
		wordlist TEXT,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		candidates INTEGER NOT NULL DEFAULT 0,
		passes INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		findings INTEGER NOT NULL DEFAULT 0,
		unresolved INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Recorded successes of a run
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		value TEXT NOT NULL,
		url TEXT NOT NULL,
		host TEXT,
		status_code INTEGER NOT NULL,
		content_length INTEGER NOT NULL,
		attempt INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	`

	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the listing view of a stored run.
type RunRecord struct {
	ID         int64         `json:"id"`
	Mode       model.Mode    `json:"mode"`
	Target     string        `json:"target"`
	Wordlist   string        `json:"wordlist"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
	Passes     int           `json:"passes"`
	Attempts   int           `json:"attempts"`
	Findings   int           `json:"findings"`
	Unresolved int           `json:"unresolved"`
	Cancelled  bool          `json:"cancelled"`
}

// FindingRecord is one stored finding.
type FindingRecord struct {
	ID            int64  `json:"id"`
	RunID         int64  `json:"run_id"`
	Value         string `json:"value"`
	URL           string `json:"url"`
	Host          string `json:"host,omitempty"`
	StatusCode    int    `json:"status_code"`
	ContentLength int    `json:"content_length"`
	Attempt       int    `json:"attempt"`
}

// SaveRun stores a summary and its findings in one transaction and
// returns the new run ID.
func (r *RunDB) SaveRun(ctx context.Context, summary *model.RunSummary) (int64, error) {
	if summary == nil {
		return 0, errors.New("summary is nil")
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (mode, target, wordlist, started_at, duration_ms, candidates,
		passes, attempts, findings, unresolved, cancelled, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.Mode.String(),
		summary.Target,
		summary.Wordlist,
		summary.StartedAt.UTC().Format(timeLayout),
		summary.Duration.Milliseconds(),
		summary.Candidates,
		summary.Passes,
		summary.Attempts,
		len(summary.Findings),
		len(summary.Unresolved),
		boolToInt(summary.Cancelled),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO findings (run_id, value, url, host, status_code, content_length, attempt)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range summary.Findings {
		if _, err := stmt.ExecContext(ctx, runID, f.Candidate.Value(), f.Candidate.URL,
			f.Candidate.Host, f.StatusCode, f.ContentLength, f.Attempt); err != nil {
			return 0, fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns stored runs, newest first. An empty target lists all.
func (r *RunDB) ListRuns(ctx context.Context, target string) ([]RunRecord, error) {
	query := `
	SELECT id, mode, target, wordlist, started_at, duration_ms, candidates,
		passes, attempts, findings, unresolved, cancelled
	FROM runs
	WHERE ? = '' OR target = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, target, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			mode       string
			wordlist   sql.NullString
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &mode, &rec.Target, &wordlist, &startedAt, &durationMS,
			&rec.Candidates, &rec.Passes, &rec.Attempts, &rec.Findings, &rec.Unresolved,
			&rec.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if m, err := model.ParseMode(mode); err == nil {
			rec.Mode = m
		}
		rec.Wordlist = wordlist.String
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRun returns the full summary of a stored run.
func (r *RunDB) GetRun(ctx context.Context, id int64) (*model.RunSummary, error) {
	var summaryJSON string
	err := r.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var summary model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &summary, nil
}

// Findings returns the findings of a run in recording order.
func (r *RunDB) Findings(ctx context.Context, runID int64) ([]FindingRecord, error) {
	query := `
	SELECT id, run_id, value, url, host, status_code, content_length, attempt
	FROM findings
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []FindingRecord
	for rows.Next() {
		var (
			f    FindingRecord
			host sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.RunID, &f.Value, &f.URL, &host,
			&f.StatusCode, &f.ContentLength, &f.Attempt); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Host = host.String
		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// timestampFormats are the layouts accepted for stored timestamps,
// most specific first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
