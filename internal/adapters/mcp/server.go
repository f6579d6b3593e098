package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
)

const (
	serverName    = "complaints"
	serverVersion = "1.0.0"

	// MCP clients have no network identity to geolocate.
	mcpClientAddress = ""
)

type Tools struct {
	intake ports.ComplaintIntake
	triage ports.ComplaintTriage
}

func NewTools(intake ports.ComplaintIntake, triage ports.ComplaintTriage) *Tools {
	return &Tools{intake: intake, triage: triage}
}

// NewServer registers the complaint tools on a fresh MCP server.
func NewServer(tools *Tools) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("create_complaint",
		mcp.WithDescription("Record a complaint; sentiment and category are derived automatically."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Complaint text")),
	), tools.createComplaint)

	s.AddTool(mcp.NewTool("list_new_complaints",
		mcp.WithDescription("List open complaints with id greater than last_id, oldest first."),
		mcp.WithNumber("last_id", mcp.Description("Cursor: highest id already seen")),
	), tools.listNewComplaints)

	s.AddTool(mcp.NewTool("close_complaint",
		mcp.WithDescription("Close an open complaint."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Complaint id")),
	), tools.closeComplaint)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) createComplaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	complaint, err := t.intake.CreateComplaint(ctx, text, mcpClientAddress)
	if err != nil {
		return toolError(ctx, "create_complaint", err), nil
	}
	return jsonResult(map[string]any{
		"id":        complaint.ID,
		"status":    complaint.Status,
		"sentiment": complaint.Sentiment,
		"category":  complaint.Category,
	})
}

func (t *Tools) listNewComplaints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lastID *int64
	if _, ok := request.GetArguments()["last_id"]; ok {
		v, err := request.RequireInt("last_id")
		if err != nil {
			return mcp.NewToolResultError("last_id must be an integer"), nil
		}
		id := int64(v)
		lastID = &id
	}

	complaints, err := t.triage.ListOpenSince(ctx, lastID)
	if err != nil {
		return toolError(ctx, "list_new_complaints", err), nil
	}
	return jsonResult(complaints)
}

func (t *Tools) closeComplaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id must be an integer"), nil
	}
	complaint, err := t.triage.Close(ctx, int64(id))
	if err != nil {
		return toolError(ctx, "close_complaint", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("complaint %d closed", complaint.ID)), nil
}

func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	case domain.IsKind(err, domain.ErrComplaintNotFound):
		return mcp.NewToolResultError(domain.ErrComplaintNotFound.Error())
	case domain.IsKind(err, domain.ErrAlreadyClosed):
		return mcp.NewToolResultError(domain.ErrAlreadyClosed.Error())
	default:
		slog.ErrorContext(ctx, "mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
