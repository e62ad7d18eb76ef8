// Package history keeps a SQLite log of every file a run touched or skipped.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per file.
const (
	ActionCropped   = "CROPPED"
	ActionUnchanged = "UNCHANGED"
	ActionSkipped   = "SKIPPED"
	ActionFailed    = "FAILED"
	ActionDryRun    = "DRY_RUN"
)

// DB manages the SQLite database for processing history
type DB struct {
	db *sql.DB
}

// Record is a single processed or skipped file.
type Record struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	Kind         string
	Threshold    int
	SizeBefore   int64
	SizeAfter    int64
	DigestBefore string
	DigestAfter  string
	Reason       string
	ErrorMessage string
}

// NewRunID returns a fresh identifier grouping the records of one run.
func NewRunID() string {
	return uuid.NewString()
}

// Open creates or opens the history database at dbPath and initializes the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping does not create the file; a statement does
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &DB{db: db}
	if err = h.initSchema(); err != nil {
		return nil, err
	}
	return h, nil
}

func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		kind TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		size_before INTEGER NOT NULL DEFAULT 0,
		size_after INTEGER NOT NULL DEFAULT 0,
		digest_before TEXT,
		digest_after TEXT,
		reason TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ops_timestamp ON operations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_ops_action ON operations(action);
	CREATE INDEX IF NOT EXISTS idx_ops_path ON operations(path);
	CREATE INDEX IF NOT EXISTS idx_ops_run ON operations(run_id);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordOperation inserts one file outcome.
func (d *DB) RecordOperation(r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	_, err := d.db.Exec(`
	INSERT INTO operations (
		run_id, timestamp, action, path, file_name, kind, threshold,
		size_before, size_after, digest_before, digest_after,
		reason, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.Timestamp,
		r.Action,
		r.Path,
		r.FileName,
		r.Kind,
		r.Threshold,
		r.SizeBefore,
		r.SizeAfter,
		r.DigestBefore,
		r.DigestAfter,
		r.Reason,
		r.ErrorMessage,
	)
	return err
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database
func (d *DB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// DeleteOldRecords removes records older than olderThanDays
func (d *DB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM operations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DatabaseStats returns record count and on-disk size
func (d *DB) DatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRecords int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&totalRecords); err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	var runs int64
	if err := d.db.QueryRow("SELECT COUNT(DISTINCT run_id) FROM operations").Scan(&runs); err != nil {
		return nil, err
	}
	stats["total_runs"] = runs

	return stats, nil
}
