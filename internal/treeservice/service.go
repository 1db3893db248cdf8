// Package treeservice resolves a project file into its item tree and keeps
// the latest result available to readers.
package treeservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/starford/projtree/internal/apperr"
	"github.com/starford/projtree/internal/checksum"
	"github.com/starford/projtree/internal/filters"
	"github.com/starford/projtree/internal/include"
	"github.com/starford/projtree/internal/index"
	"github.com/starford/projtree/internal/models"
	"github.com/starford/projtree/internal/parser"
	"github.com/starford/projtree/internal/storage"
)

// ReloadHook is called after every reload that produced a new snapshot.
type ReloadHook func(*models.Snapshot)

// Option configures a Service.
type Option func(*Service)

// WithIndex persists every snapshot to db and serves search from it.
func WithIndex(db index.TreeIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithFiltersPath overrides the default "<project>.filters" location.
// Relative paths are resolved against the project directory. The file may
// live outside it.
func WithFiltersPath(p string) Option {
	return func(s *Service) { s.filtersPath = p }
}

// WithResolverOptions tunes the entry resolver.
func WithResolverOptions(opts ...include.ResolverOption) Option {
	return func(s *Service) { s.resolverOpts = append(s.resolverOpts, opts...) }
}

// WithReloadLimit throttles reloads to r per second with the given burst.
// A zero r disables throttling.
func WithReloadLimit(r float64, burst int) Option {
	return func(s *Service) {
		if r <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithReloadHook registers fn to run after each successful reload.
func WithReloadHook(fn ReloadHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, fn) }
}

// state is an immutable view published after each reload.
type state struct {
	snap     *models.Snapshot
	includes []*include.Include
	children map[string][]int
}

// Service coordinates storage, resolution and the index for one project.
type Service struct {
	projectPath  string
	projectFile  string
	basePath     string
	filtersPath  string
	store        storage.Provider
	resolver     *include.Resolver
	resolverOpts []include.ResolverOption
	db           index.TreeIndex
	limiter      *rate.Limiter
	logger       *slog.Logger
	hooks        []ReloadHook

	reloadMu sync.Mutex
	current  atomic.Pointer[state]
}

// New creates a service for the project file at projectPath. Nothing is
// resolved until Reload or Restore is called.
func New(projectPath string, opts ...Option) (*Service, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("treeservice: resolve project path: %w", err)
	}
	s := &Service{
		projectPath: abs,
		projectFile: filepath.Base(abs),
		basePath:    filepath.Dir(abs),
		limiter:     rate.NewLimiter(rate.Inf, 0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store, err = storage.NewFS(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("treeservice: %w", err)
	}
	s.resolver = include.NewResolver(s.store, s.resolverOpts...)

	if s.filtersPath == "" {
		s.filtersPath = s.projectFile + ".filters"
	}
	// Inside the project the store reads the file; anything else stays
	// absolute and is read directly.
	fp := s.filtersPath
	if !filepath.IsAbs(fp) {
		fp = filepath.Join(s.basePath, fp)
	}
	fp = filepath.Clean(fp)
	if rel, err := filepath.Rel(s.basePath, fp); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		s.filtersPath = rel
	} else {
		s.filtersPath = fp
	}
	return s, nil
}

// ProjectPath returns the absolute path of the project file.
func (s *Service) ProjectPath() string { return s.projectPath }

// BasePath returns the project directory all patterns are anchored to.
func (s *Service) BasePath() string { return s.basePath }

// Restore loads the last persisted snapshot from the index, if any.
// It is a no-op once a snapshot is already loaded.
func (s *Service) Restore() error {
	if s.db == nil || s.current.Load() != nil {
		return nil
	}
	snap, err := s.db.LoadSnapshot(s.projectPath)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// Declarations are rebuilt on the next reload; until then
	// IsPathIncluded reports ErrNotLoaded.
	s.current.CompareAndSwap(nil, newState(snap, nil))
	s.logger.Info("service: restored snapshot",
		slog.String("reload_id", snap.ReloadID),
		slog.Int("entries", len(snap.Entries)))
	return nil
}

// Reload reads the project and filters files and resolves a fresh tree.
// Unless force is set, nothing is resolved when both files are unchanged
// since the last reload; changed reports whether a new snapshot was
// published. A failed reload keeps the previous snapshot.
func (s *Service) Reload(ctx context.Context, force bool) (snap *models.Snapshot, changed bool, err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	projData, err := s.store.Read(s.projectFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("treeservice: %s: %w", s.projectFile, apperr.ErrNotFound)
		}
		return nil, false, err
	}
	filtersData, err := s.readFilters()
	if err != nil {
		return nil, false, err
	}

	sum := checksum.SumAll(projData, filtersData)
	if cur := s.current.Load(); !force && cur != nil && cur.includes != nil && cur.snap.Checksum == sum {
		s.logger.Debug("service: reload skipped, unchanged", slog.String("checksum", sum))
		return cur.snap, false, nil
	}

	decls, err := parser.ParseProject(projData)
	if err != nil {
		return nil, false, fmt.Errorf("treeservice: %s: %w: %v", s.projectFile, apperr.ErrInvalidProject, err)
	}
	fx := filters.NewIndex()
	if filtersData != nil {
		fdecls, err := parser.ParseFilters(filtersData)
		if err != nil {
			return nil, false, fmt.Errorf("treeservice: %s: %w: %v", s.filtersPath, apperr.ErrInvalidProject, err)
		}
		fx.Load(fdecls)
	}

	start := time.Now()
	includes := make([]*include.Include, 0, len(decls))
	set := include.NewEntrySet()
	var itemTypes []string
	var diags []models.Diagnostic
	for _, d := range decls {
		inc := include.New(d.Type, d.Include,
			include.WithExclude(d.Exclude),
			include.WithLink(d.Link),
			include.WithLinkBase(d.LinkBase),
			include.WithDependentUpon(d.DependentUpon),
		)
		includes = append(includes, inc)

		before := set.Len()
		ds, err := s.resolver.GetEntries(ctx, inc, s.basePath, set, fx)
		if err != nil {
			return nil, false, err
		}
		diags = append(diags, ds...)
		for i := before; i < set.Len(); i++ {
			itemTypes = append(itemTypes, inc.Type())
		}
	}

	raw := set.Entries()
	entries := make([]models.TreeEntry, len(raw))
	for i, e := range raw {
		entries[i] = models.TreeEntry{ProjectItemEntry: e, ItemType: itemTypes[i]}
	}
	if diags == nil {
		diags = []models.Diagnostic{}
	}

	snap = &models.Snapshot{
		Project:     s.projectPath,
		ReloadID:    uuid.NewString(),
		Checksum:    sum,
		Entries:     entries,
		Diagnostics: diags,
		CreatedAt:   time.Now().UTC(),
	}

	for _, d := range diags {
		s.logger.Warn("service: resolve diagnostic",
			slog.String("kind", string(d.Kind)),
			slog.String("pattern", d.Pattern),
			slog.String("path", d.Path),
			slog.String("message", d.Message))
	}

	if s.db != nil {
		if err := s.db.ReplaceSnapshot(snap); err != nil {
			return nil, false, err
		}
	}

	s.current.Store(newState(snap, includes))
	s.logger.Info("service: reloaded",
		slog.String("reload_id", snap.ReloadID),
		slog.Int("declarations", len(includes)),
		slog.Int("entries", len(entries)),
		slog.Int("diagnostics", len(diags)),
		slog.Duration("took", time.Since(start)))

	for _, h := range s.hooks {
		h(snap)
	}
	return snap, true, nil
}

// readFilters returns the filters file, or nil when there is none.
func (s *Service) readFilters() ([]byte, error) {
	if !filepath.IsAbs(s.filtersPath) {
		if !s.store.Exists(s.filtersPath) {
			return nil, nil
		}
		return s.store.Read(s.filtersPath)
	}
	data, err := os.ReadFile(s.filtersPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("treeservice: read filters: %w", err)
	}
	return data, nil
}

// FiltersPath returns the filters file location: relative to the project
// directory when inside it, absolute otherwise.
func (s *Service) FiltersPath() string { return s.filtersPath }

func newState(snap *models.Snapshot, includes []*include.Include) *state {
	st := &state{snap: snap, includes: includes, children: make(map[string][]int)}
	for i, e := range snap.Entries {
		p := e.Parent()
		st.children[p] = append(st.children[p], i)
	}
	return st
}

func (s *Service) load() (*state, error) {
	st := s.current.Load()
	if st == nil {
		return nil, apperr.ErrNotLoaded
	}
	return st, nil
}

// Snapshot returns the latest published snapshot.
func (s *Service) Snapshot() (*models.Snapshot, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.snap, nil
}

// Entries returns every entry of the tree in resolution order.
func (s *Service) Entries() ([]models.TreeEntry, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.snap.Entries, nil
}

// Children returns the direct children of the folder at parent ("" for the
// root). An unknown non-root parent yields apperr.ErrNotFound.
func (s *Service) Children(parent string) ([]models.TreeEntry, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	parent = strings.Trim(filepath.ToSlash(parent), "/")
	idx, ok := st.children[parent]
	if !ok {
		if parent != "" && !st.hasFolder(parent) {
			return nil, apperr.ErrNotFound
		}
		return []models.TreeEntry{}, nil
	}
	out := make([]models.TreeEntry, len(idx))
	for i, n := range idx {
		out[i] = st.snap.Entries[n]
	}
	return out, nil
}

func (st *state) hasFolder(rel string) bool {
	for _, e := range st.snap.Entries {
		if e.IsDirectory && e.RelativePath == rel {
			return true
		}
	}
	return false
}

// Search finds entries whose name or path contains query. The index is
// used when configured, otherwise the in-memory snapshot is scanned.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if s.db != nil {
		return s.db.Search(s.projectPath, query, limit)
	}

	q := strings.ToLower(query)
	out := []index.SearchResult{}
	for _, e := range st.snap.Entries {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(e.RelativePath), q) {
			out = append(out, index.SearchResult{
				RelativePath: e.RelativePath,
				Name:         e.Name,
				ItemType:     e.ItemType,
				IsDirectory:  e.IsDirectory,
			})
		}
	}
	return out, nil
}

// IsPathIncluded returns the item types of every declaration that includes
// p. Relative paths are taken from the project directory. The filesystem is
// not consulted.
func (s *Service) IsPathIncluded(p string) ([]string, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if st.includes == nil {
		return nil, apperr.ErrNotLoaded
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.basePath, filepath.FromSlash(p))
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, inc := range st.includes {
		if _, dup := seen[inc.Type()]; dup {
			continue
		}
		if inc.IsPathIncluded(s.store, s.basePath, p) {
			seen[inc.Type()] = struct{}{}
			out = append(out, inc.Type())
		}
	}
	return out, nil
}

// Diagnostics returns the warnings of the latest snapshot.
func (s *Service) Diagnostics() ([]models.Diagnostic, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.snap.Diagnostics, nil
}
