package include

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/projtree/internal/models"
)

// DefaultMaxParentTraversal bounds the number of ".." occurrences accepted in
// a pattern that starts with "..".
const DefaultMaxParentTraversal = 10

// StatChecker reports whether a path is a directory.
type StatChecker interface {
	IsDir(path string) (bool, error)
}

// Globber expands pattern (relative to searchRoot, forward slashes) into the
// absolute paths of matching files. Matches of any exclude pattern (absolute,
// forward slashes) are dropped.
type Globber interface {
	Glob(ctx context.Context, searchRoot, pattern string, excludes []string) ([]string, error)
}

// Matcher reports whether candidate matches any of patterns.
type Matcher interface {
	Match(patterns []string, candidate string) bool
}

// FileSystem is the filesystem capability the resolver depends on.
type FileSystem interface {
	StatChecker
	Globber
}

// FilterLookup maps files to filter (virtual folder) paths.
type FilterLookup interface {
	HasFilters() bool
	FilterFor(path string) (string, bool)
}

// Resolver turns include declarations into project item entries.
type Resolver struct {
	fs                 FileSystem
	maxParentTraversal int
	concurrency        int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxParentTraversal overrides DefaultMaxParentTraversal.
func WithMaxParentTraversal(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxParentTraversal = n
		}
	}
}

// WithConcurrency sets how many patterns of one declaration are globbed at once.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a Resolver on top of fs.
func NewResolver(fs FileSystem, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fs:                 fs,
		maxParentTraversal: DefaultMaxParentTraversal,
		concurrency:        1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type planKind int

const (
	planSkip planKind = iota
	planExternal
	planOverflow
	planGlob
)

// patternPlan is the classification of one pattern token plus, for glob
// plans, the expansion result.
type patternPlan struct {
	kind     planKind
	pattern  string
	external string // cleaned absolute path, planExternal only
	root     string // search root, planGlob only
	glob     string // pattern relative to root, planGlob only
	matches  []string
	err      error
}

// GetEntries resolves every pattern of inc against basePath and appends the
// resulting entries to set. filters may be nil.
//
// Failures of single patterns or files are returned as diagnostics and never
// stop the pass. The error is non-nil only when ctx is cancelled; set then
// holds whatever was produced so far.
func (r *Resolver) GetEntries(ctx context.Context, inc *Include, basePath string, set *EntrySet, filters FilterLookup) ([]models.Diagnostic, error) {
	base := filepath.Clean(basePath)
	excludes := anchor(base, inc.Excludes())

	patterns := inc.Patterns()
	plans := make([]patternPlan, len(patterns))
	for i, p := range patterns {
		plans[i] = r.plan(p, base)
	}

	// Expansion may fan out; insertion below stays serialized and ordered.
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range plans {
		pl := &plans[i]
		if pl.kind != planGlob {
			continue
		}
		g.Go(func() error {
			pl.matches, pl.err = r.fs.Glob(ctx, pl.root, pl.glob, excludes)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var diags []models.Diagnostic
	report := func(d *models.Diagnostic) {
		if d != nil {
			diags = append(diags, *d)
		}
	}

	for _, pl := range plans {
		switch pl.kind {
		case planExternal:
			report(r.addExternalEntry(inc, pl.external, base, set, filters))

		case planOverflow:
			report(&models.Diagnostic{
				Kind:    models.DiagPatternTraversalOverflow,
				Pattern: pl.pattern,
				Message: fmt.Sprintf("pattern has more than %d parent directory traversals", r.maxParentTraversal),
			})

		case planGlob:
			if pl.err != nil {
				report(&models.Diagnostic{
					Kind:    models.DiagGlobExpansionFailure,
					Pattern: pl.pattern,
					Path:    pl.root,
					Message: pl.err.Error(),
				})
				continue
			}
			for _, m := range pl.matches {
				if err := ctx.Err(); err != nil {
					return diags, err
				}
				report(r.addFileEntry(inc, m, base, set, filters))
			}
		}
	}

	return diags, nil
}

// plan classifies one pattern token.
func (r *Resolver) plan(pattern, base string) patternPlan {
	pl := patternPlan{pattern: pattern}

	rel := pattern
	if filepath.IsAbs(pattern) {
		abs := filepath.Clean(pattern)
		if !hasPathPrefixFold(abs, base) {
			pl.kind = planExternal
			pl.external = abs
			return pl
		}
		rel = strings.TrimPrefix(abs[len(base):], string(filepath.Separator))
	}

	if strings.HasPrefix(pattern, "..") && strings.Count(pattern, "..") > r.maxParentTraversal {
		pl.kind = planOverflow
		return pl
	}

	cleaned := cleanLeadingParents(toSlash(rel))
	if cleaned == "" {
		return pl
	}

	pl.kind = planGlob
	pl.root = base
	pl.glob = cleaned
	if isGlob(cleaned) {
		if prefix := searchPrefix(cleaned); prefix != "." {
			pl.root = filepath.Join(base, filepath.FromSlash(prefix))
			pl.glob = strings.TrimPrefix(cleaned, prefix+"/")
		}
	}
	return pl
}

// addFileEntry produces the entries of one globbed file.
func (r *Resolver) addFileEntry(inc *Include, filePath, base string, set *EntrySet, filters FilterLookup) *models.Diagnostic {
	if filter, ok := lookupFilter(filters, filePath, base); ok {
		return r.addFilteredEntry(inc, filePath, filter, set)
	}

	rel := inc.ExpandLink(filePath, RecursiveDir(filePath, base))
	if rel == "" || set.Has(rel) {
		return nil
	}

	isLink := !hasPathPrefixFold(filePath, base)
	for _, folder := range physicalFolders(set, rel, filePath, isLink) {
		set.Add(folder)
	}

	isDir, diag := r.isDirectory(filePath)
	set.Add(models.ProjectItemEntry{
		Name:          path.Base(rel),
		FullPath:      filePath,
		RelativePath:  rel,
		IsDirectory:   isDir,
		IsLink:        isLink,
		DependentUpon: inc.dependentUpon,
	})
	return diag
}

// addExternalEntry produces the single entry of an absolute path outside the
// project. It is placed by filter when one maps it, otherwise at its path
// relative to the project directory ("../lib/x.h"), which is unique per
// physical file. No folders are synthesized.
func (r *Resolver) addExternalEntry(inc *Include, filePath, base string, set *EntrySet, filters FilterLookup) *models.Diagnostic {
	if filter, ok := lookupFilter(filters, filePath, base); ok {
		return r.addFilteredEntry(inc, filePath, filter, set)
	}

	rel := filepath.ToSlash(filePath)
	if p, err := filepath.Rel(base, filePath); err == nil {
		rel = filepath.ToSlash(p)
	}
	if set.Has(rel) {
		return nil
	}

	isDir, diag := r.isDirectory(filePath)
	set.Add(models.ProjectItemEntry{
		Name:          filepath.Base(filePath),
		FullPath:      filePath,
		RelativePath:  rel,
		IsDirectory:   isDir,
		IsLink:        true,
		DependentUpon: inc.dependentUpon,
	})
	return diag
}

// addFilteredEntry places filePath below its filter's virtual folders.
func (r *Resolver) addFilteredEntry(inc *Include, filePath, filter string, set *EntrySet) *models.Diagnostic {
	name := filepath.Base(filePath)
	dir := strings.Join(segments(filter), "/")
	rel := path.Join(dir, name)
	if set.Has(rel) {
		return nil
	}

	for _, folder := range virtualFolders(set, dir) {
		set.Add(folder)
	}

	isDir, diag := r.isDirectory(filePath)
	set.Add(models.ProjectItemEntry{
		Name:          name,
		FullPath:      filePath,
		RelativePath:  rel,
		IsDirectory:   isDir,
		IsLink:        true,
		DependentUpon: inc.dependentUpon,
	})
	return diag
}

// isDirectory falls back to "no extension means directory" when the
// filesystem check fails.
func (r *Resolver) isDirectory(filePath string) (bool, *models.Diagnostic) {
	isDir, err := r.fs.IsDir(filePath)
	if err == nil {
		return isDir, nil
	}
	return extension(filepath.Base(filePath)) == "", &models.Diagnostic{
		Kind:    models.DiagFilesystemStatFailure,
		Path:    filePath,
		Message: err.Error(),
	}
}

// lookupFilter asks filters for the project-relative form of filePath so
// that exact declarations win over the filename fallback.
func lookupFilter(filters FilterLookup, filePath, base string) (string, bool) {
	if filters == nil || !filters.HasFilters() {
		return "", false
	}
	key := filePath
	if rel, err := filepath.Rel(base, filePath); err == nil {
		key = rel
	}
	return filters.FilterFor(key)
}

// virtualFolders returns the missing folder entries of a virtual directory
// path, root to leaf. Virtual folders have no physical path.
func virtualFolders(set *EntrySet, dir string) []models.ProjectItemEntry {
	var out []models.ProjectItemEntry
	current := ""
	for _, seg := range segments(dir) {
		if current == "" {
			current = seg
		} else {
			current += "/" + seg
		}
		if set.HasDirectory(current) {
			continue
		}
		out = append(out, models.ProjectItemEntry{
			Name:         seg,
			RelativePath: current,
			IsDirectory:  true,
			IsLink:       true,
		})
	}
	return out
}

// physicalFolders returns the missing ancestor folders of rel, root to leaf.
// Virtual components are walked leaf to root together with the physical
// directories of filePath; once a component's name stops matching its
// physical directory the remaining folders are virtual and get no FullPath.
func physicalFolders(set *EntrySet, rel, filePath string, isLink bool) []models.ProjectItemEntry {
	var out []models.ProjectItemEntry
	folder := path.Dir(rel)
	dir := filepath.Dir(filePath)
	backed := true

	for folder != "." && folder != "/" && folder != "" {
		name := path.Base(folder)
		if backed && !strings.EqualFold(name, filepath.Base(dir)) {
			backed = false
		}
		if !set.Has(folder) {
			e := models.ProjectItemEntry{
				Name:         name,
				RelativePath: folder,
				IsDirectory:  true,
				IsLink:       isLink || !backed,
			}
			if backed {
				e.FullPath = dir
			}
			out = append(out, e)
		}
		folder = path.Dir(folder)
		dir = filepath.Dir(dir)
	}

	slices.Reverse(out)
	return out
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if s != "." {
			out = append(out, s)
		}
	}
	return out
}
