package history

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, run_id, timestamp, action, path, file_name, kind, threshold,
	       size_before, size_after, digest_before, digest_after, reason, error_message
	FROM operations
`

// Recent returns the N most recent records
func (d *DB) Recent(limit int) ([]Record, error) {
	return d.queryRecords(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// ByAction returns records filtered by action
func (d *DB) ByAction(action string, limit int) ([]Record, error) {
	return d.queryRecords(selectColumns+`WHERE action = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, action, limit)
}

// ByPath returns records whose path matches a LIKE pattern
func (d *DB) ByPath(pathPattern string, limit int) ([]Record, error) {
	return d.queryRecords(selectColumns+`WHERE path LIKE ? ORDER BY timestamp DESC, id DESC LIMIT ?`, pathPattern, limit)
}

// ByRun returns every record of one run in insertion order
func (d *DB) ByRun(runID string) ([]Record, error) {
	return d.queryRecords(selectColumns+`WHERE run_id = ? ORDER BY id ASC`, runID)
}

// Stats holds aggregated statistics for a period
type Stats struct {
	Cropped    int
	Unchanged  int
	Skipped    int
	Failed     int
	DryRun     int
	Runs       int
	BytesSaved int64
	ByKind     map[string]int
	StartDate  time.Time
	EndDate    time.Time
}

// Stats returns aggregated statistics for the last days
func (d *DB) Stats(days int) (*Stats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{StartDate: since, EndDate: now, ByKind: map[string]int{}}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'CROPPED' THEN 1 END),
			COUNT(CASE WHEN action = 'UNCHANGED' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIPPED' THEN 1 END),
			COUNT(CASE WHEN action = 'FAILED' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(DISTINCT run_id),
			COALESCE(SUM(CASE WHEN action = 'CROPPED' THEN size_before - size_after END), 0)
		FROM operations
		WHERE timestamp >= ?
	`, since).Scan(&stats.Cropped, &stats.Unchanged, &stats.Skipped, &stats.Failed,
		&stats.DryRun, &stats.Runs, &stats.BytesSaved)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT kind, COUNT(*)
		FROM operations
		WHERE timestamp >= ?
		GROUP BY kind
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.ByKind[kind] = count
	}
	return stats, rows.Err()
}

// queryRecords executes a query and scans the rows into records
func (d *DB) queryRecords(query string, args ...interface{}) ([]Record, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var fileName, digestBefore, digestAfter, reason, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.Kind, &r.Threshold, &r.SizeBefore, &r.SizeAfter,
			&digestBefore, &digestAfter, &reason, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.DigestBefore = digestBefore.String
		r.DigestAfter = digestAfter.String
		r.Reason = reason.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}
