// Package include resolves MSBuild-style include declarations into project
// item entries: files plus the virtual folders that contain them.
package include

import (
	"path/filepath"
	"strings"
)

// DefaultLink is the link template used when a declaration carries none.
const DefaultLink = "%(LinkBase)/%(RecursiveDir)%(Filename)%(Extension)"

// Link template placeholders.
const (
	PlaceholderExtension    = "%(Extension)"
	PlaceholderFilename     = "%(Filename)"
	PlaceholderRecursiveDir = "%(RecursiveDir)"
	PlaceholderLinkBase     = "%(LinkBase)"
)

// Include is one inclusion rule of a project. It is immutable after New.
type Include struct {
	itemType      string
	value         string
	link          string
	linkBase      string
	exclude       string
	dependentUpon string
}

// Option configures optional Include metadata.
type Option func(*Include)

// WithLink sets the link template. An empty template keeps DefaultLink.
func WithLink(link string) Option {
	return func(inc *Include) {
		if link != "" {
			inc.link = link
		}
	}
}

// WithLinkBase sets the %(LinkBase) value.
func WithLinkBase(linkBase string) Option {
	return func(inc *Include) {
		inc.linkBase = linkBase
	}
}

// WithExclude sets the semicolon-joined exclusion patterns.
func WithExclude(exclude string) Option {
	return func(inc *Include) {
		inc.exclude = exclude
	}
}

// WithDependentUpon sets the name of the item this one is nested under.
func WithDependentUpon(name string) Option {
	return func(inc *Include) {
		inc.dependentUpon = name
	}
}

// New creates an Include of the given item type (ClCompile, None, Content...)
// for a semicolon-joined pattern list.
func New(itemType, value string, opts ...Option) *Include {
	inc := &Include{
		itemType: itemType,
		value:    value,
		link:     DefaultLink,
	}
	for _, opt := range opts {
		opt(inc)
	}
	return inc
}

func (inc *Include) Type() string          { return inc.itemType }
func (inc *Include) Value() string         { return inc.value }
func (inc *Include) Link() string          { return inc.link }
func (inc *Include) LinkBase() string      { return inc.linkBase }
func (inc *Include) Exclude() string       { return inc.exclude }
func (inc *Include) DependentUpon() string { return inc.dependentUpon }

// Patterns returns the non-empty include patterns in declaration order.
func (inc *Include) Patterns() []string {
	return splitPatterns(inc.value)
}

// Excludes returns the non-empty exclusion patterns in declaration order.
func (inc *Include) Excludes() []string {
	return splitPatterns(inc.exclude)
}

// ExpandLink substitutes the link template placeholders for filePath and
// returns the forward-slash virtual path, with one leading separator removed.
func (inc *Include) ExpandLink(filePath, recursiveDir string) string {
	name := filepath.Base(filePath)
	ext := extension(name)
	r := strings.NewReplacer(
		PlaceholderExtension, ext,
		PlaceholderFilename, strings.TrimSuffix(name, ext),
		PlaceholderRecursiveDir, recursiveDir,
		PlaceholderLinkBase, inc.linkBase,
	)
	result := strings.ReplaceAll(r.Replace(inc.link), `\`, "/")
	return strings.TrimPrefix(result, "/")
}

// RecursiveDir returns the part of filePath's directory below searchRoot,
// with a trailing separator, or "" when the file does not lie under the root.
// The root comparison is case-insensitive.
func RecursiveDir(filePath, searchRoot string) string {
	dir := filepath.Dir(filePath)
	root := filepath.Clean(searchRoot)
	if !hasPathPrefixFold(dir, root) {
		return ""
	}

	sep := string(filepath.Separator)
	rest := strings.TrimPrefix(dir[len(root):], sep)
	if rest == "" {
		return ""
	}
	if !strings.HasSuffix(rest, sep) {
		rest += sep
	}
	return filepath.ToSlash(rest)
}

// hasPathPrefixFold reports whether p equals root or lies below it,
// ignoring case.
func hasPathPrefixFold(p, root string) bool {
	if len(p) < len(root) || !strings.EqualFold(p[:len(root)], root) {
		return false
	}
	if len(p) == len(root) || strings.HasSuffix(root, string(filepath.Separator)) {
		return true
	}
	return p[len(root)] == filepath.Separator
}

// extension mirrors MSBuild's %(Extension): dot files such as ".gitignore"
// have no extension.
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return ext
}
