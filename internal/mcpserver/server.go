// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Skald note tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/veleda/skald/internal/filter"
	"github.com/veleda/skald/internal/models"
	"github.com/veleda/skald/internal/session"
)

// Server wraps the MCP server with Skald tools. All tools go through
// the session controller, so an LLM edit is indistinguishable from a
// client edit as far as indexing and change events are concerned.
type Server struct {
	mcp  *server.MCPServer
	ctrl *session.Controller
}

// New creates a new MCP server with all Skald tools registered.
func New(ctrl *session.Controller) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"Skald",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note content, titles and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Content MUST follow the canonical note format (YAML frontmatter with title, "+
			"optional tags, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_note_contract tool or the skald://note-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Skald note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Skald note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, or only the notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Check whether a wikilink target resolves to an existing note "+
			"or media file, so broken links can be detected before writing them."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Wikilink target as written, e.g. 'folder/note' or 'diagram.png'")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Store a base64-encoded media file in the vault and get the "+
			"embed syntax to reference it from a note."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Filename with extension, e.g. diagram.png")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Base64-encoded file content")),
	), s.uploadMedia)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("skald://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.ctrl.Filter(ctx, filter.Query{Text: query})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		Path    string `json:"path"`
		Snippet string `json:"snippet,omitempty"`
	}
	hits := make([]hit, 0, len(view.Entries))
	for _, e := range view.Entries {
		hits = append(hits, hit{Path: e.Path, Snippet: view.Snippets[e.Path]})
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.ctrl.GetNote(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.CreateNote(path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	var paths []string
	for _, e := range s.ctrl.Entries() {
		if e.Kind != models.KindNote {
			continue
		}
		if folder != "" && e.Folder != folder && !strings.HasPrefix(e.Folder, folder+"/") {
			continue
		}
		paths = append(paths, e.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) resolveLink(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx := s.ctrl.Index()
	result := map[string]any{
		"target": target,
		"exists": idx.Exists(target),
	}
	if p := idx.ResolveMedia(target); p != "" {
		result["media_path"] = p
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "skald://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
