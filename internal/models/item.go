// Package models defines the domain types for projtree.
package models

// ProjectItemEntry is one physical file or one virtual folder of a project tree.
type ProjectItemEntry struct {
	Name         string `json:"name"`
	FullPath     string `json:"full_path"` // empty for purely virtual folders
	RelativePath string `json:"relative_path"`
	IsDirectory  bool   `json:"is_directory"`
	// IsLink is set when the virtual location differs from the physical one.
	IsLink        bool   `json:"is_link"`
	DependentUpon string `json:"dependent_upon,omitempty"`
}

// DiagnosticKind classifies a non-fatal problem met during resolution.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagPatternTraversalOverflow DiagnosticKind = "pattern_traversal_overflow"
	DiagGlobExpansionFailure     DiagnosticKind = "glob_expansion_failure"
	DiagFilesystemStatFailure    DiagnosticKind = "filesystem_stat_failure"
)

// Diagnostic is a warning produced while resolving entries.
// It never aborts the resolution pass.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Pattern string         `json:"pattern,omitempty"`
	Path    string         `json:"path,omitempty"`
	Message string         `json:"message"`
}
