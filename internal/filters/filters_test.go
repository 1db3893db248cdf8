package filters

import (
	"reflect"
	"testing"
)

func TestEmptyIndex(t *testing.T) {
	x := NewIndex()
	if x.HasFilters() {
		t.Error("empty index should report no filters")
	}
	if f, ok := x.FilterFor("src/a.cpp"); ok {
		t.Errorf("unexpected mapping %q", f)
	}
}

func TestFilterFor_ExactMatch(t *testing.T) {
	x := NewIndex()
	x.Load([]Declaration{
		{IncludePath: `Src\Core\Engine.cpp`, FilterPath: `Source Files\Core`},
	})
	if !x.HasFilters() {
		t.Fatal("expected filters")
	}
	f, ok := x.FilterFor("src/core/engine.cpp")
	if !ok || f != `Source Files\Core` {
		t.Errorf("FilterFor = %q, %v", f, ok)
	}
}

func TestFilterFor_FilenameFallback(t *testing.T) {
	x := NewIndex()
	x.Load([]Declaration{
		{IncludePath: `src\util.h`, FilterPath: "Header Files"},
	})
	f, ok := x.FilterFor("/home/me/proj/src/UTIL.H")
	if !ok || f != "Header Files" {
		t.Errorf("FilterFor = %q, %v", f, ok)
	}
}

func TestFilterFor_FilenameCollisionLastWins(t *testing.T) {
	x := NewIndex()
	x.Load([]Declaration{
		{IncludePath: `a\main.cpp`, FilterPath: "First"},
		{IncludePath: `b\main.cpp`, FilterPath: "Second"},
	})

	// Exact paths still resolve to their own filter.
	if f, _ := x.FilterFor(`a\main.cpp`); f != "First" {
		t.Errorf("exact a = %q, want First", f)
	}
	// Unknown location falls back to the last registered filename.
	if f, _ := x.FilterFor("c/main.cpp"); f != "Second" {
		t.Errorf("fallback = %q, want Second", f)
	}
}

func TestLoad_SkipsIncomplete(t *testing.T) {
	x := NewIndex()
	x.Load([]Declaration{
		{IncludePath: "", FilterPath: "X"},
		{IncludePath: "a.cpp", FilterPath: ""},
	})
	if x.HasFilters() {
		t.Error("incomplete declarations should be ignored")
	}
}

func TestFiltersAndFiles(t *testing.T) {
	x := NewIndex()
	x.Load([]Declaration{
		{IncludePath: `src\b.cpp`, FilterPath: "Source"},
		{IncludePath: `src\a.cpp`, FilterPath: "Source"},
		{IncludePath: `inc\a.h`, FilterPath: "Headers"},
	})
	if got := x.Filters(); !reflect.DeepEqual(got, []string{"Headers", "Source"}) {
		t.Errorf("Filters = %v", got)
	}
	if got := x.Files("Source"); !reflect.DeepEqual(got, []string{"src/a.cpp", "src/b.cpp"}) {
		t.Errorf("Files = %v", got)
	}
	if got := x.Files("Missing"); len(got) != 0 {
		t.Errorf("Files(Missing) = %v", got)
	}
}
