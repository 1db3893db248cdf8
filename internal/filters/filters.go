// Package filters indexes the virtual folder assignments declared in a
// .vcxproj.filters file.
package filters

import (
	"sort"
	"strings"
)

// Declaration maps one project item to the filter (virtual folder) it is shown under.
type Declaration struct {
	IncludePath string
	FilterPath  string
}

// Index answers "which virtual folder does this file belong to?".
//
// It is built once by Load and read-only afterwards, so it may be shared
// across concurrent readers without locking.
type Index struct {
	filters      map[string]map[string]struct{} // filter path -> normalized member paths
	fileToFilter map[string]string              // normalized path or bare filename -> filter path
}

// NewIndex returns an empty index. Lookups on an empty index report no mapping.
func NewIndex() *Index {
	return &Index{
		filters:      make(map[string]map[string]struct{}),
		fileToFilter: make(map[string]string),
	}
}

// Load registers every declaration. Both the normalized include path and the
// bare filename are registered; on a filename collision the last declaration wins.
func (x *Index) Load(decls []Declaration) {
	for _, d := range decls {
		if d.IncludePath == "" || d.FilterPath == "" {
			continue
		}
		x.add(d.IncludePath, d.FilterPath)
	}
}

func (x *Index) add(filePath, filterPath string) {
	normalized := normalize(filePath)
	x.fileToFilter[normalized] = filterPath

	if name := baseName(filePath); name != "" {
		x.fileToFilter[strings.ToLower(name)] = filterPath
	}

	members, ok := x.filters[filterPath]
	if !ok {
		members = make(map[string]struct{})
		x.filters[filterPath] = members
	}
	members[normalized] = struct{}{}
}

// FilterFor returns the filter path for the file, trying the exact normalized
// path first and the bare filename second.
func (x *Index) FilterFor(path string) (string, bool) {
	if x == nil {
		return "", false
	}
	if f, ok := x.fileToFilter[normalize(path)]; ok {
		return f, true
	}
	name := baseName(path)
	if name == "" {
		return "", false
	}
	f, ok := x.fileToFilter[strings.ToLower(name)]
	return f, ok
}

// HasFilters reports whether at least one mapping was registered.
func (x *Index) HasFilters() bool {
	return x != nil && len(x.filters) > 0
}

// Filters returns every filter path that has members, sorted.
func (x *Index) Filters() []string {
	out := make([]string, 0, len(x.filters))
	for f := range x.filters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Files returns the normalized member paths of a filter, sorted.
func (x *Index) Files(filterPath string) []string {
	members := x.filters[filterPath]
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func normalize(p string) string {
	return strings.ReplaceAll(strings.ToLower(p), `\`, "/")
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		return p[i+1:]
	}
	return p
}
