// Package journal provides SQLite-based persistence for migration runs.
// Applied runs, previews, and failures are appended so a tree's
// migration history stays reviewable after the fact.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusApplied = "applied"
	StatusPreview = "preview"
	StatusFailed  = "failed"
)

// Run is one recorded migration execution.
type Run struct {
	ID           string
	StartedAt    time.Time
	Root         string
	FromVersion  string
	ToVersion    string
	DryRun       bool
	Steps        int
	FilesChanged int
	Insertions   int
	Deletions    int
	BackupDir    string
	Status       string
	Error        string
}

// Journal is the run ledger backed by a SQLite database.
type Journal struct {
	db *sql.DB
}

// Open opens the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Initialize creates the journal schema.
func (j *Journal) Initialize() error {
	schema := `
	-- Migration runs (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		root TEXT NOT NULL,
		from_version TEXT NOT NULL,
		to_version TEXT NOT NULL,
		dry_run BOOLEAN DEFAULT FALSE,
		steps INTEGER DEFAULT 0,
		files_changed INTEGER DEFAULT 0,
		insertions INTEGER DEFAULT 0,
		deletions INTEGER DEFAULT 0,
		backup_dir TEXT,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := j.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// RecordRun appends a run to the ledger. A missing ID or start time is
// filled in.
func (j *Journal) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := j.db.Exec(`
		INSERT INTO runs (id, started_at, root, from_version, to_version, dry_run,
			steps, files_changed, insertions, deletions, backup_dir, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Root, run.FromVersion, run.ToVersion, run.DryRun,
		run.Steps, run.FilesChanged, run.Insertions, run.Deletions,
		sql.NullString{String: run.BackupDir, Valid: run.BackupDir != ""},
		run.Status,
		sql.NullString{String: run.Error, Valid: run.Error != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns runs in reverse chronological order.
func (j *Journal) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, root, from_version, to_version, dry_run,
			steps, files_changed, insertions, deletions, backup_dir, status, error
		FROM runs
		ORDER BY started_at DESC, id DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = j.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = j.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var backupDir sql.NullString
		var runErr sql.NullString

		err := rows.Scan(&run.ID, &startedAt, &run.Root, &run.FromVersion, &run.ToVersion,
			&run.DryRun, &run.Steps, &run.FilesChanged, &run.Insertions, &run.Deletions,
			&backupDir, &run.Status, &runErr)
		if err != nil {
			return nil, err
		}

		run.StartedAt = parseTimestamp(startedAt)
		if backupDir.Valid {
			run.BackupDir = backupDir.String
		}
		if runErr.Valid {
			run.Error = runErr.String
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// parseTimestamp parses a timestamp string from SQLite in its common formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
