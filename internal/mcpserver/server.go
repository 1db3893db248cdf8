// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes projtree tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/projtree/internal/apperr"
	"github.com/starford/projtree/internal/treeservice"
)

// Resource URIs.
const (
	TreeResourceURI        = "projtree://tree"
	EntryFormatResourceURI = "projtree://entry-format"
)

// Server wraps the MCP server with projtree tools.
type Server struct {
	mcp *server.MCPServer
	svc *treeservice.Service
}

// New creates a new MCP server with all projtree tools registered.
func New(svc *treeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"projtree",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the resolved project tree. Without parent every entry is returned "+
			"in resolution order; with parent only its direct children (empty string for the root). "+
			"See the projtree://entry-format resource for field meanings."),
		mcp.WithString("parent", mcp.Description("Folder relative_path, e.g. src/core")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Search entries by name or relative path."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("is_path_included",
		mcp.WithDescription("Report which item declarations of the project include a path. "+
			"Only patterns are evaluated; the file does not need to exist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or path relative to the project directory")),
	), s.isPathIncluded)

	s.mcp.AddTool(mcp.NewTool("get_diagnostics",
		mcp.WithDescription("Warnings produced while resolving the current tree."),
	), s.getDiagnostics)

	s.mcp.AddTool(mcp.NewTool("reload_project",
		mcp.WithDescription("Re-read the project and filters files and resolve the tree again."),
		mcp.WithBoolean("force", mcp.Description("Resolve even when the files are unchanged")),
	), s.reloadProject)

	s.mcp.AddResource(
		mcp.NewResource(TreeResourceURI, "Project Tree",
			mcp.WithResourceDescription("The current snapshot: entries and diagnostics as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readTreeResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(EntryFormatResourceURI, "Entry Format",
			mcp.WithResourceDescription("Meaning of the fields of a tree entry."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns domain errors into tool results the model can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotLoaded):
		return mcp.NewToolResultError("project not loaded yet; call reload_project")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listEntries(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if parent, ok := req.GetArguments()["parent"].(string); ok {
		entries, err := s.svc.Children(parent)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(entries), nil
	}
	entries, err := s.svc.Entries()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no entries found"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) isPathIncluded(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	types, err := s.svc.IsPathIncluded(path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"path":       path,
		"included":   len(types) > 0,
		"item_types": types,
	}), nil
}

func (s *Server) getDiagnostics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	diags, err := s.svc.Diagnostics()
	if err != nil {
		return toolError(err), nil
	}
	if len(diags) == 0 {
		return mcp.NewToolResultText("no diagnostics"), nil
	}
	return jsonResult(diags), nil
}

func (s *Server) reloadProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, changed, err := s.svc.Reload(ctx, req.GetBool("force", false))
	if err != nil {
		return toolError(err), nil
	}
	if !changed {
		return mcp.NewToolResultText(fmt.Sprintf("unchanged: %s (%d entries)", snap.ReloadID, len(snap.Entries))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("reloaded: %s (%d entries, %d diagnostics)",
		snap.ReloadID, len(snap.Entries), len(snap.Diagnostics))), nil
}

func (s *Server) readTreeResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := s.svc.Snapshot()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode tree: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TreeResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readEntryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      EntryFormatResourceURI,
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
