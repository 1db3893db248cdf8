package include

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// fakeFS is an in-memory FileSystem and Matcher keyed by absolute slash paths.
type fakeFS struct {
	mu        sync.Mutex
	nodes     map[string]bool // path -> isDir
	globCalls int
	globErrs  map[string]error // keyed by glob pattern
	statErrs  map[string]error
}

func newFakeFS(files ...string) *fakeFS {
	f := &fakeFS{
		nodes:    make(map[string]bool),
		globErrs: make(map[string]error),
		statErrs: make(map[string]error),
	}
	for _, p := range files {
		f.addFile(p)
	}
	return f
}

func (f *fakeFS) addFile(p string) {
	f.nodes[p] = false
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		f.nodes[dir] = true
	}
}

func (f *fakeFS) IsDir(p string) (bool, error) {
	if err, ok := f.statErrs[p]; ok {
		return false, err
	}
	isDir, ok := f.nodes[p]
	if !ok {
		return false, fmt.Errorf("stat %s: %w", p, fs.ErrNotExist)
	}
	return isDir, nil
}

func (f *fakeFS) Glob(_ context.Context, root, pattern string, excludes []string) ([]string, error) {
	f.mu.Lock()
	f.globCalls++
	err := f.globErrs[pattern]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	full := path.Join(filepath.ToSlash(root), pattern)
	var out []string
	for _, p := range f.sorted() {
		if f.nodes[p] {
			continue
		}
		if ok, _ := doublestar.Match(full, p); !ok {
			continue
		}
		if f.Match(excludes, p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeFS) Match(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, candidate); ok {
			return true
		}
	}
	return false
}

func (f *fakeFS) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.globCalls
}

func (f *fakeFS) sorted() []string {
	out := make([]string, 0, len(f.nodes))
	for p := range f.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
