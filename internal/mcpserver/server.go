// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the record lifecycle to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/adrctl/internal/adr"
	"github.com/starford/adrctl/internal/adrservice"
	"github.com/starford/adrctl/internal/apperr"
)

// RecordFormatURI identifies the record format resource.
const RecordFormatURI = "adr://record-format"

// Server wraps the MCP server with the record tools.
type Server struct {
	mcp *server.MCPServer
	svc *adrservice.Service
}

// New creates a new MCP server with all record tools registered.
func New(svc *adrservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"adrctl",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_adrs",
		mcp.WithDescription("List architecture decision records in index order with their current status."),
		mcp.WithString("status", mcp.Description("Optional status word to filter by (e.g. Accepted)")),
	), s.listADRs)

	s.mcp.AddTool(mcp.NewTool("read_adr",
		mcp.WithDescription("Read the full Markdown of a record."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Record filename, e.g. 0002-use-postgres.md")),
	), s.readADR)

	s.mcp.AddTool(mcp.NewTool("create_adr",
		mcp.WithDescription("Create the next record from the record template. "+
			"With link_type and target, the target record receives the reciprocal link; "+
			"link_type Supersedes also marks the target Superseded. "+
			"Read the "+RecordFormatURI+" resource for the record layout."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Human title of the decision")),
		mcp.WithString("status", mcp.Required(), mcp.Description("Initial status, e.g. Proposed")),
		mcp.WithString("link_type", mcp.Description("Optional link phrase from the new record, e.g. Supersedes or Amends")),
		mcp.WithString("target", mcp.Description("Existing record filename the link points to")),
	), s.createADR)

	s.mcp.AddTool(mcp.NewTool("change_status",
		mcp.WithDescription("Set a new current status on a record. The old status is kept as a Previous status line."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Record filename")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status, e.g. Accepted")),
	), s.changeStatus)

	s.mcp.AddTool(mcp.NewTool("add_link",
		mcp.WithDescription("Append a link line to the target record's Status section. "+
			"The link type Superseded by also changes the target status to Superseded."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Record filename the link refers to")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Record filename that receives the line")),
		mcp.WithString("link_type", mcp.Required(), mcp.Description("Link phrase, e.g. Amended by")),
	), s.addLink)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Record Format",
			mcp.WithResourceDescription("Layout of a record and the Status section conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

// toolError turns a service error into a tool result the model can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("record not found: " + err.Error())
	case errors.Is(err, adr.ErrStatusSectionNotFound):
		return mcp.NewToolResultError("record has no \"## Status\" section with a \"Status: \" line; it was left unchanged")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listADRs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	want := strings.ToLower(req.GetString("status", ""))
	recs, err := s.svc.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	var lines []string
	for _, r := range recs {
		if want != "" && !strings.HasPrefix(strings.ToLower(r.Status), want) {
			continue
		}
		status := r.Status
		if status == "" {
			status = "(no status)"
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", r.Name, r.Title, status))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readADR(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(rec.Content), nil
}

func (s *Server) createADR(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.Create(ctx, adrservice.CreateRequest{
		Name:     name,
		Status:   status,
		LinkType: req.GetString("link_type", ""),
		Target:   req.GetString("target", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", filepath.Base(path))), nil
}

func (s *Server) changeStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.ChangeStatus(ctx, name, status); err != nil {
		return toolError(err), nil
	}
	return s.summary(ctx, name)
}

func (s *Server) addLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	linkType, err := req.RequireString("link_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AddLink(ctx, source, target, linkType); err != nil {
		return toolError(err), nil
	}
	return s.summary(ctx, target)
}

// summary reports the record's status and links after a change.
func (s *Server) summary(ctx context.Context, name string) (*mcp.CallToolResult, error) {
	rec, err := s.svc.Get(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	rec.Content = ""
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}
