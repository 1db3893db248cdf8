//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchByPathSegment(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceSnapshot(sampleSnapshot("app", "1"))

	results, err := db.Search("app", "core", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// The folder itself and the file beneath it.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
}

func TestFTS5_ReplaceClearsOldRows(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceSnapshot(sampleSnapshot("app", "1"))
	_ = db.ReplaceSnapshot(sampleSnapshot("app", "2"))

	var count int
	_ = db.conn.QueryRow(`SELECT count(*) FROM entries_fts WHERE project = 'app'`).Scan(&count)
	if count != 5 {
		t.Errorf("fts rows = %d, want 5", count)
	}
}

func TestFTS5_SearchPathWithSeparators(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceSnapshot(sampleSnapshot("app", "1"))

	results, err := db.Search("app", `src\core/eng`, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "engine.cpp" {
		t.Errorf("results = %+v", results)
	}
}

func TestMatchExpr(t *testing.T) {
	tests := map[string]string{
		"core":         `"core"*`,
		`src\core/eng`: `"src"* "core"* "eng"*`,
		`a"b`:          `"a"* "b"*`,
		"   ":          "",
	}
	for in, want := range tests {
		if got := matchExpr(in); got != want {
			t.Errorf("matchExpr(%q) = %q, want %q", in, got, want)
		}
	}
}
