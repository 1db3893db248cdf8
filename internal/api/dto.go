package api

import (
	"github.com/starford/projtree/internal/index"
	"github.com/starford/projtree/internal/models"
)

// Entry is one tree entry in API responses (aliased from the domain layer).
type Entry = models.TreeEntry

// EntryListResponse wraps an entry listing.
type EntryListResponse struct {
	Parent  *string `json:"parent,omitempty" example:"src/core"`
	Entries []Entry `json:"entries" validate:"required"`
}

// SearchResult is a single search hit (aliased from the index layer).
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// IncludedResponse reports which declarations include a path.
type IncludedResponse struct {
	Path      string   `json:"path" example:"src/main.cpp" validate:"required"`
	Included  bool     `json:"included" example:"true"`
	ItemTypes []string `json:"item_types" example:"ClCompile" validate:"required"`
}

// DiagnosticsResponse wraps the warnings of the current snapshot.
type DiagnosticsResponse struct {
	ReloadID    string              `json:"reload_id" validate:"required"`
	Diagnostics []models.Diagnostic `json:"diagnostics" validate:"required"`
}

// ReloadResponse is returned after POST /reload.
type ReloadResponse struct {
	ReloadID    string `json:"reload_id" example:"6f1c2d0e-8a47-4b8e-9b55-2f1f0c3a9d11" validate:"required"`
	Changed     bool   `json:"changed"`
	Entries     int    `json:"entries" example:"42"`
	Diagnostics int    `json:"diagnostics" example:"0"`
}
