package index

import "github.com/starford/projtree/internal/models"

// TreeIndex defines the persistence operations the tree service needs.
// Consumers should depend on this interface rather than the concrete *DB type.
type TreeIndex interface {
	ReplaceSnapshot(s *models.Snapshot) error
	LoadSnapshot(project string) (*models.Snapshot, error)
	ListEntries(project, parent string) ([]models.TreeEntry, error)
	Search(project, query string, limit int) ([]SearchResult, error)
	GetChecksum(project string) (string, error)
	Diagnostics(project string) ([]models.Diagnostic, error)
	Close() error
}

// Verify *DB satisfies TreeIndex at compile time.
var _ TreeIndex = (*DB)(nil)
