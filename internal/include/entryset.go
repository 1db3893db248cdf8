package include

import "github.com/starford/projtree/internal/models"

// EntrySet is the ordered, growing sequence of entries produced by one
// resolution pass. Relative paths are unique: the first entry added for a
// path wins and later adds are ignored.
//
// The zero value is ready to use. An EntrySet is not safe for concurrent use.
type EntrySet struct {
	entries []models.ProjectItemEntry
	index   map[string]int
}

// NewEntrySet returns an empty set.
func NewEntrySet() *EntrySet {
	return &EntrySet{index: make(map[string]int)}
}

// Add appends e unless an entry with the same relative path exists.
// It reports whether e was added.
func (s *EntrySet) Add(e models.ProjectItemEntry) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[e.RelativePath]; ok {
		return false
	}
	s.index[e.RelativePath] = len(s.entries)
	s.entries = append(s.entries, e)
	return true
}

// Has reports whether an entry with relative path rel exists.
func (s *EntrySet) Has(rel string) bool {
	_, ok := s.index[rel]
	return ok
}

// HasDirectory reports whether a folder entry with relative path rel exists.
func (s *EntrySet) HasDirectory(rel string) bool {
	i, ok := s.index[rel]
	return ok && s.entries[i].IsDirectory
}

// Get returns the entry stored for rel.
func (s *EntrySet) Get(rel string) (models.ProjectItemEntry, bool) {
	i, ok := s.index[rel]
	if !ok {
		return models.ProjectItemEntry{}, false
	}
	return s.entries[i], true
}

// Len returns the number of entries.
func (s *EntrySet) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in insertion order.
func (s *EntrySet) Entries() []models.ProjectItemEntry {
	out := make([]models.ProjectItemEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
