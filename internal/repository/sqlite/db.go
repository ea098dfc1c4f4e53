// Package sqlite is the embedded audit store used for single-node and CLI runs.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS audit_records (
		id TEXT PRIMARY KEY,
		folder_id TEXT NOT NULL,
		agency TEXT NOT NULL,
		ehr TEXT NOT NULL,
		status TEXT NOT NULL,
		rule_set_version TEXT NOT NULL,
		run_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_records_run_at ON audit_records(run_at);`,
	`CREATE TABLE IF NOT EXISTS run_reservations (
		run_key TEXT PRIMARY KEY,
		reserved_at INTEGER NOT NULL
	);`,
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Use ":memory:" for a throwaway store.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying sqlite schema: %w", err)
		}
	}
	return db, nil
}
