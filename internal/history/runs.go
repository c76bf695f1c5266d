package history

import (
	"database/sql"
	"time"
)

// Run is one recorded invocation.
type Run struct {
	ID         int64
	StartedAt  string
	Backend    string
	PeriodType string
	Succeeded  int
	Failed     int
}

// Item is one processed source within a run.
type Item struct {
	ID         int64
	RunID      int64
	Source     string
	Output     *string
	PeriodType string
	Error      *string
}

// Stats summarizes the ledger for the status command.
type Stats struct {
	TotalRuns      int
	TotalSucceeded int
	TotalFailed    int
	LastRunAt      string
}

// InsertRun records the start of a run and returns its id.
func (db *DB) InsertRun(backend, periodType string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO runs (started_at, backend, period_type) VALUES (?, ?, ?)",
		time.Now().Format(time.RFC3339), backend, periodType,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun stores the final tallies for a run.
func (db *DB) FinishRun(runID int64, succeeded, failed int) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET succeeded = ?, failed = ? WHERE id = ?",
		succeeded, failed, runID,
	)
	return err
}

// InsertItem records one source's outcome within a run. errMsg empty
// means success.
func (db *DB) InsertItem(runID int64, source, output, periodType, errMsg string) error {
	var out, e *string
	if output != "" {
		out = &output
	}
	if errMsg != "" {
		e = &errMsg
	}
	_, err := db.conn.Exec(
		"INSERT INTO run_items (run_id, source, output, period_type, error) VALUES (?, ?, ?, ?, ?)",
		runID, source, out, periodType, e,
	)
	return err
}

// GetStats aggregates run counts for status output.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	row := db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(succeeded), 0), COALESCE(SUM(failed), 0), COALESCE(MAX(started_at), '') FROM runs",
	)
	if err := row.Scan(&s.TotalRuns, &s.TotalSucceeded, &s.TotalFailed, &s.LastRunAt); err != nil {
		return nil, err
	}
	return s, nil
}

// RecentRuns returns the newest runs, most recent first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		"SELECT id, started_at, backend, period_type, succeeded, failed FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Backend, &r.PeriodType, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ItemsForRun returns a run's per-item records.
func (db *DB) ItemsForRun(runID int64) ([]Item, error) {
	rows, err := db.conn.Query(
		"SELECT id, run_id, source, output, period_type, error FROM run_items WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var out, e sql.NullString
		if err := rows.Scan(&it.ID, &it.RunID, &it.Source, &out, &it.PeriodType, &e); err != nil {
			return nil, err
		}
		if out.Valid {
			it.Output = &out.String
		}
		if e.Valid {
			it.Error = &e.String
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
