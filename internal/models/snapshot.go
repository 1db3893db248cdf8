package models

import (
	"path"
	"strings"
	"time"
)

// TreeEntry is an entry tagged with the item type that produced it.
// Virtual folders carry the type of the item that first introduced them.
type TreeEntry struct {
	ProjectItemEntry
	ItemType string `json:"item_type,omitempty"`
}

// Parent returns the relative path of the containing folder, or "" at the
// tree root.
func (e TreeEntry) Parent() string {
	return ParentOf(e.RelativePath)
}

// ParentOf returns the parent folder of a forward-slash relative path.
// Files outside the project sit at the root.
func ParentOf(rel string) string {
	if IsOutside(rel) {
		return ""
	}
	d := path.Dir(rel)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// IsOutside reports whether rel points above the project directory, as the
// relative paths of external files do ("../lib/x.h").
func IsOutside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// Depth returns the nesting level of rel in the tree; root entries are 0.
func Depth(rel string) int {
	if IsOutside(rel) {
		return 0
	}
	return strings.Count(rel, "/")
}

// Snapshot is the resolved tree of one project at one point in time.
type Snapshot struct {
	Project     string       `json:"project"`
	ReloadID    string       `json:"reload_id"`
	Checksum    string       `json:"checksum"`
	Entries     []TreeEntry  `json:"entries"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	CreatedAt   time.Time    `json:"created_at"`
}
