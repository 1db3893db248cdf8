// Package storage defines the project file-system abstraction.
package storage

import "context"

// Provider is the interface for project file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path (relative to the project root).
	Read(path string) ([]byte, error)
	// Exists reports whether path (relative to the project root) exists.
	Exists(path string) bool
	// IsDir reports whether the absolute path is a directory.
	IsDir(path string) (bool, error)
	// Glob returns the absolute paths of files under searchRoot matching pattern.
	Glob(ctx context.Context, searchRoot, pattern string, excludes []string) ([]string, error)
	// Match reports whether candidate matches any of the absolute patterns.
	Match(patterns []string, candidate string) bool
}
