package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/projtree/internal/apperr"
	"github.com/starford/projtree/internal/treeservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *treeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *treeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("project not loaded"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidProject):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("request cancelled"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListEntries handles GET /api/entries.
//
//	@Summary		List tree entries, or the children of one folder
//	@Tags			tree
//	@Produce		json
//	@Param			parent	query		string	false	"Folder relative path; empty for the root"
//	@Success		200		{object}	EntryListResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("parent") {
		entries, err := h.svc.Entries()
		if err != nil {
			writeServiceError(w, "list entries", err)
			return
		}
		writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries})
		return
	}

	parent := q.Get("parent")
	entries, err := h.svc.Children(parent)
	if err != nil {
		writeServiceError(w, "list children", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Parent: &parent, Entries: entries})
}

// Search handles GET /api/search.
//
//	@Summary		Search entries by name or path
//	@Tags			tree
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Included handles GET /api/included.
//
//	@Summary		Check whether a path is matched by the project's declarations
//	@Tags			tree
//	@Produce		json
//	@Param			path	query		string	true	"Absolute path or path relative to the project directory"
//	@Success		200		{object}	IncludedResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/included [get]
func (h *Handler) Included(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	types, err := h.svc.IsPathIncluded(p)
	if err != nil {
		writeServiceError(w, "included", err)
		return
	}
	writeJSON(w, http.StatusOK, IncludedResponse{Path: p, Included: len(types) > 0, ItemTypes: types})
}

// Diagnostics handles GET /api/diagnostics.
//
//	@Summary		Warnings produced by the last reload
//	@Tags			tree
//	@Produce		json
//	@Success		200	{object}	DiagnosticsResponse
//	@Security		BearerAuth
//	@Router			/diagnostics [get]
func (h *Handler) Diagnostics(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.svc.Snapshot()
	if err != nil {
		writeServiceError(w, "diagnostics", err)
		return
	}
	writeJSON(w, http.StatusOK, DiagnosticsResponse{ReloadID: snap.ReloadID, Diagnostics: snap.Diagnostics})
}

// Reload handles POST /api/reload.
//
//	@Summary		Re-resolve the project tree
//	@Tags			tree
//	@Produce		json
//	@Param			force	query		bool	false	"Resolve even when the project files are unchanged"
//	@Success		200		{object}	ReloadResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	snap, changed, err := h.svc.Reload(r.Context(), force)
	if err != nil {
		writeServiceError(w, "reload", err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		ReloadID:    snap.ReloadID,
		Changed:     changed,
		Entries:     len(snap.Entries),
		Diagnostics: len(snap.Diagnostics),
	})
}
