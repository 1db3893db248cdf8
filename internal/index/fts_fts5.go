//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			project UNINDEXED,
			relative_path UNINDEXED,
			name,
			segments,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, project, rel, name string) error {
	_, err := tx.Exec(`INSERT INTO entries_fts (project, relative_path, name, segments) VALUES (?, ?, ?, ?)`,
		project, rel, name, strings.ReplaceAll(rel, "/", " "))
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx, project string) error {
	if _, err := tx.Exec(`DELETE FROM entries_fts WHERE project = ?`, project); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	return nil
}

// matchExpr turns free text into an FTS5 expression: every token becomes a
// quoted prefix term so path punctuation cannot break the query syntax.
func matchExpr(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return r == ' ' || r == '/' || r == '\\' || r == '"'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search over entry names and path segments.
func (db *DB) Search(project, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	expr := matchExpr(query)
	if expr == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT e.relative_path, e.name, e.item_type, e.is_dir
		FROM entries_fts f
		JOIN entries e ON e.project = f.project AND e.relative_path = f.relative_path
		WHERE entries_fts MATCH ? AND f.project = ?
		ORDER BY f.rank
		LIMIT ?
	`, expr, project, limit)
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
