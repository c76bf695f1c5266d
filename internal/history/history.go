// Package history keeps a local ledger of runs and per-item outcomes.
// It is observability only: de-duplication is decided by output-file
// existence on the backend, never by this database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite run ledger.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the ledger at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the ledger.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the ledger file path.
func (db *DB) Path() string {
	return db.path
}

func migrate(conn *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at  TEXT NOT NULL,
    backend     TEXT NOT NULL,
    period_type TEXT NOT NULL,
    succeeded   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_items (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    source      TEXT NOT NULL,
    output      TEXT,
    period_type TEXT NOT NULL,
    error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
`
	if _, err := conn.Exec(schema); err != nil {
		return err
	}
	return nil
}
