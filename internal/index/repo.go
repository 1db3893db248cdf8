package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/projtree/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	RelativePath string `json:"relative_path"`
	Name         string `json:"name"`
	ItemType     string `json:"item_type,omitempty"`
	IsDirectory  bool   `json:"is_directory"`
}

// ReplaceSnapshot swaps the stored tree of s.Project for s within one
// transaction: readers see either the old tree or the new one.
func (db *DB) ReplaceSnapshot(s *models.Snapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entries WHERE project = ?`, s.Project); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM diagnostics WHERE project = ?`, s.Project); err != nil {
		return fmt.Errorf("index: clear diagnostics: %w", err)
	}
	if err := ftsClear(tx, s.Project); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (project, ordinal, relative_path, parent, name, full_path,
			is_dir, is_link, dependent_upon, item_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range s.Entries {
		if _, err := stmt.Exec(s.Project, i, e.RelativePath, e.Parent(), e.Name, e.FullPath,
			e.IsDirectory, e.IsLink, e.DependentUpon, e.ItemType); err != nil {
			return fmt.Errorf("index: insert entry %s: %w", e.RelativePath, err)
		}
		if err := ftsInsert(tx, s.Project, e.RelativePath, e.Name); err != nil {
			return err
		}
	}

	for i, d := range s.Diagnostics {
		if _, err := tx.Exec(`
			INSERT INTO diagnostics (project, ordinal, kind, pattern, path, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.Project, i, string(d.Kind), d.Pattern, d.Path, d.Message); err != nil {
			return fmt.Errorf("index: insert diagnostic: %w", err)
		}
	}

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO snapshots (project, reload_id, checksum, entry_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project) DO UPDATE SET
			reload_id   = excluded.reload_id,
			checksum    = excluded.checksum,
			entry_count = excluded.entry_count,
			created_at  = excluded.created_at
	`, s.Project, s.ReloadID, s.Checksum, len(s.Entries), createdAt)
	if err != nil {
		return fmt.Errorf("index: upsert snapshot: %w", err)
	}

	return tx.Commit()
}

// ListEntries returns the direct children of parent ("" for the tree root)
// in resolution order.
func (db *DB) ListEntries(project, parent string) ([]models.TreeEntry, error) {
	rows, err := db.conn.Query(`
		SELECT relative_path, name, full_path, is_dir, is_link, dependent_upon, item_type
		FROM entries
		WHERE project = ? AND parent = ?
		ORDER BY ordinal
	`, project, parent)
	if err != nil {
		return nil, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetChecksum returns the stored checksum for a project, or empty string if
// it was never indexed.
func (db *DB) GetChecksum(project string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM snapshots WHERE project = ?`, project).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// Diagnostics returns the warnings recorded with the project's last snapshot.
func (db *DB) Diagnostics(project string) ([]models.Diagnostic, error) {
	rows, err := db.conn.Query(`
		SELECT kind, pattern, path, message
		FROM diagnostics
		WHERE project = ?
		ORDER BY ordinal
	`, project)
	if err != nil {
		return nil, fmt.Errorf("index: diagnostics: %w", err)
	}
	defer rows.Close()

	out := []models.Diagnostic{}
	for rows.Next() {
		var d models.Diagnostic
		var kind string
		if err := rows.Scan(&kind, &d.Pattern, &d.Path, &d.Message); err != nil {
			return nil, err
		}
		d.Kind = models.DiagnosticKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]models.TreeEntry, error) {
	out := []models.TreeEntry{}
	for rows.Next() {
		var e models.TreeEntry
		if err := rows.Scan(&e.RelativePath, &e.Name, &e.FullPath, &e.IsDirectory,
			&e.IsLink, &e.DependentUpon, &e.ItemType); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
