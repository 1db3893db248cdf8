package include

import (
	"testing"

	"github.com/starford/projtree/internal/models"
)

func TestEntrySet_FirstWriterWins(t *testing.T) {
	s := NewEntrySet()
	if !s.Add(models.ProjectItemEntry{RelativePath: "a", Name: "first"}) {
		t.Fatal("first add rejected")
	}
	if s.Add(models.ProjectItemEntry{RelativePath: "a", Name: "second"}) {
		t.Error("duplicate add accepted")
	}
	e, ok := s.Get("a")
	if !ok || e.Name != "first" {
		t.Errorf("Get = %+v, %v", e, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestEntrySet_ZeroValue(t *testing.T) {
	var s EntrySet
	if s.Has("x") {
		t.Error("zero set should be empty")
	}
	s.Add(models.ProjectItemEntry{RelativePath: "x", IsDirectory: true})
	if !s.HasDirectory("x") {
		t.Error("expected folder x")
	}
}

func TestEntrySet_EntriesIsCopy(t *testing.T) {
	s := NewEntrySet()
	s.Add(models.ProjectItemEntry{RelativePath: "a"})
	got := s.Entries()
	got[0].RelativePath = "mutated"
	if !s.Has("a") || s.Entries()[0].RelativePath != "a" {
		t.Error("Entries must not expose internal storage")
	}
}

func TestEntrySet_HasDirectoryIgnoresFiles(t *testing.T) {
	s := NewEntrySet()
	s.Add(models.ProjectItemEntry{RelativePath: "a"})
	if s.HasDirectory("a") {
		t.Error("file reported as folder")
	}
}
