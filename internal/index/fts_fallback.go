//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over entries.name and entries.relative_path.
	return nil
}

func ftsInsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsClear(_ *sql.Tx, _ string) error { return nil }

// Search performs a case-insensitive LIKE search (fallback when FTS5 is not compiled in).
func (db *DB) Search(project, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT relative_path, name, item_type, is_dir
		FROM entries
		WHERE project = ? AND (name LIKE ? OR relative_path LIKE ?)
		ORDER BY ordinal
		LIMIT ?
	`, project, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.RelativePath, &r.Name, &r.ItemType, &r.IsDirectory); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
