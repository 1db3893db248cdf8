// Package index persists resolved project trees in SQLite, with optional
// FTS5 search over entry names, and watches project directories for changes.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	project     TEXT PRIMARY KEY,
	reload_id   TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	entry_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	project        TEXT NOT NULL,
	ordinal        INTEGER NOT NULL,
	relative_path  TEXT NOT NULL,
	parent         TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	full_path      TEXT NOT NULL DEFAULT '',
	is_dir         INTEGER NOT NULL DEFAULT 0,
	is_link        INTEGER NOT NULL DEFAULT 0,
	dependent_upon TEXT NOT NULL DEFAULT '',
	item_type      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project, relative_path)
);

CREATE INDEX IF NOT EXISTS idx_entries_parent ON entries(project, parent, ordinal);

CREATE TABLE IF NOT EXISTS diagnostics (
	project TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	kind    TEXT NOT NULL,
	pattern TEXT NOT NULL DEFAULT '',
	path    TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_project ON diagnostics(project, ordinal);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
