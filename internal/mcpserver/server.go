// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notes API as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
)

// Server wraps the MCP server with the notes tools.
type Server struct {
	mcp      *server.MCPServer
	api      notes.API
	template string
	fetcher  *http.Client
}

// New creates a new MCP server with all tools registered. template is the
// public URL template used for images without a signed URL.
func New(api notes.API, template string) *Server {
	s := &Server{api: api, template: template, fetcher: newFetcher()}

	s.mcp = server.NewMCPServer(
		"Lumen",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, most recently updated first."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its images."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. The title must not be blank."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update the title and/or content of a note. Omitted fields are left unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note and all of its images. This cannot be undone."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Attach an image to a note. Accepts a base64 data: URI or an http(s) URL. "+
			"Images must be under 5MB."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the image")),
		mcp.WithString("filename", mcp.Description("Optional filename; its extension selects the stored key's extension")),
	), s.uploadImage)

	s.mcp.AddTool(mcp.NewTool("delete_image",
		mcp.WithDescription("Remove an image from a note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("image_key", mcp.Required(), mcp.Description("Image key as listed in the note's images")),
	), s.deleteImage)

	return s
}

// Serve speaks MCP over the given streams until in closes or ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// noteView is a note as returned to MCP clients, with every image resolved
// to a displayable URL.
type noteView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Images    []string `json:"images"`
	ImageURLs []string `json:"image_urls"`
}

func (s *Server) view(n *notes.Note) noteView {
	urls := make([]string, len(n.Images))
	for i := range n.Images {
		urls[i] = n.DisplayURL(i, s.template)
	}
	images := n.Images
	if images == nil {
		images = []string{}
	}
	return noteView{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.NaiveString(),
		UpdatedAt: n.UpdatedAt.NaiveString(),
		Images:    images,
		ImageURLs: urls,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(apperr.Message(err)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.api.ListNotes(ctx)
	if err != nil {
		return errorResult(err)
	}
	notes.SortByUpdatedDesc(list)
	views := make([]noteView, 0, len(list))
	for i := range list {
		views = append(views, s.view(&list[i]))
	}
	return jsonResult(views)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.api.GetNote(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(s.view(n))
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.api.CreateNote(ctx, notes.NoteCreate{
		Title:   title,
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(s.view(n))
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var in notes.NoteUpdate
	args := req.GetArguments()
	if v, ok := args["title"].(string); ok {
		in.Title = &v
	}
	if v, ok := args["content"].(string); ok {
		in.Content = &v
	}
	if in.Title == nil && in.Content == nil {
		return mcp.NewToolResultError("nothing to update: pass title and/or content"), nil
	}

	n, err := s.api.UpdateNote(ctx, id, in)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(s.view(n))
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := s.api.DeleteNote(ctx, id)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(msg.Message), nil
}

func (s *Server) deleteImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("image_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := s.api.DeleteImage(ctx, noteID, key)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", msg.Message, key)), nil
}
