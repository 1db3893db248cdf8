package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempProject(t *testing.T, files ...string) *FS {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(f), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempProject(t, "app.vcxproj")
	got, err := s.Read("app.vcxproj")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "app.vcxproj" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("missing.vcxproj"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestExists(t *testing.T) {
	s := tempProject(t, "app.vcxproj.filters")
	if !s.Exists("app.vcxproj.filters") {
		t.Error("expected filters file to exist")
	}
	if s.Exists("other.filters") {
		t.Error("unexpected file")
	}
	if s.Exists("../outside") {
		t.Error("traversal must not be reported as existing")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)
	for _, p := range []string{"../../etc/passwd", "../outside.vcxproj", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestIsDir(t *testing.T) {
	s := tempProject(t, "src/a.cpp")
	isDir, err := s.IsDir(filepath.Join(s.Root(), "src"))
	if err != nil || !isDir {
		t.Errorf("src: isDir=%v err=%v", isDir, err)
	}
	isDir, err = s.IsDir(filepath.Join(s.Root(), "src", "a.cpp"))
	if err != nil || isDir {
		t.Errorf("a.cpp: isDir=%v err=%v", isDir, err)
	}
	if _, err := s.IsDir(filepath.Join(s.Root(), "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing path err = %v", err)
	}
}

func TestGlob(t *testing.T) {
	s := tempProject(t, "src/a.cpp", "src/lib/b.cpp", "src/lib/b.h", "readme.md")
	got, err := s.Glob(context.Background(), s.Root(), "**/*.cpp", nil)
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	want := []string{
		filepath.Join(s.Root(), "src", "a.cpp"),
		filepath.Join(s.Root(), "src", "lib", "b.cpp"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Glob = %v, want %v", got, want)
	}
}

func TestGlob_FilesOnly(t *testing.T) {
	s := tempProject(t, "src/lib/b.cpp")
	got, err := s.Glob(context.Background(), s.Root(), "src/*", nil)
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("directories should not be returned: %v", got)
	}
}

func TestGlob_Excludes(t *testing.T) {
	s := tempProject(t, "src/a.cpp", "src/lib/b.cpp")
	excl := []string{filepath.ToSlash(s.Root()) + "/src/lib/**"}
	got, err := s.Glob(context.Background(), filepath.Join(s.Root(), "src"), "**/*.cpp", excl)
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "a.cpp" {
		t.Errorf("Glob = %v", got)
	}
}

func TestGlob_LiteralPattern(t *testing.T) {
	s := tempProject(t, "src/a.cpp")
	got, err := s.Glob(context.Background(), s.Root(), "src/a.cpp", nil)
	if err != nil || len(got) != 1 {
		t.Errorf("Glob = %v, %v", got, err)
	}
	got, err = s.Glob(context.Background(), s.Root(), "src/missing.cpp", nil)
	if err != nil || len(got) != 0 {
		t.Errorf("missing literal = %v, %v", got, err)
	}
}

func TestGlob_MissingRoot(t *testing.T) {
	s := tempProject(t)
	got, err := s.Glob(context.Background(), filepath.Join(s.Root(), "nowhere"), "*.cpp", nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Glob = %v, %v", got, err)
	}
}

func TestGlob_BadPattern(t *testing.T) {
	s := tempProject(t)
	if _, err := s.Glob(context.Background(), s.Root(), "src/[a.cpp", nil); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestMatch(t *testing.T) {
	s := tempProject(t)
	if !s.Match([]string{"/p/src/**/*.cpp"}, "/p/src/x/a.cpp") {
		t.Error("expected match")
	}
	if s.Match([]string{"/p/[bad"}, "/p/[bad") {
		t.Error("invalid pattern must not match")
	}
	if s.Match(nil, "/p/a") {
		t.Error("no patterns must not match")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS("/tmp/projtree-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "projtree-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
