package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/projtree/internal/apperr"
	"github.com/starford/projtree/internal/models"
)

// LoadSnapshot rebuilds the last persisted tree of a project so a restarted
// server can answer queries before its first reload finishes.
// It returns apperr.ErrNotFound when the project was never indexed.
func (db *DB) LoadSnapshot(project string) (*models.Snapshot, error) {
	s := &models.Snapshot{Project: project}
	err := db.conn.QueryRow(`
		SELECT reload_id, checksum, created_at FROM snapshots WHERE project = ?
	`, project).Scan(&s.ReloadID, &s.Checksum, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: load snapshot: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT relative_path, name, full_path, is_dir, is_link, dependent_upon, item_type
		FROM entries
		WHERE project = ?
		ORDER BY ordinal
	`, project)
	if err != nil {
		return nil, fmt.Errorf("index: load entries: %w", err)
	}
	defer rows.Close()
	if s.Entries, err = scanEntries(rows); err != nil {
		return nil, fmt.Errorf("index: scan entries: %w", err)
	}

	if s.Diagnostics, err = db.Diagnostics(project); err != nil {
		return nil, err
	}
	return s, nil
}
