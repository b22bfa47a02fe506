// Package mcptool exposes capture as an MCP tool so assistants can drop
// notes into the inbox over stdio.
package mcptool

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ryan-winkler/catch/internal/vault"
)

// CaptureFunc writes text to the inbox and returns the status message.
type CaptureFunc func(text string) string

// CatchTool handles the catch_note MCP tool.
type CatchTool struct {
	capture CaptureFunc
}

// NewCatchTool creates a CatchTool backed by capture.
func NewCatchTool(capture CaptureFunc) *CatchTool {
	return &CatchTool{capture: capture}
}

// Definition returns the MCP tool definition for catch_note.
func (t *CatchTool) Definition() mcp.Tool {
	return mcp.NewTool("catch_note",
		mcp.WithDescription(
			"Catch a short idea as a new note in the inbox folder. The text becomes the note's file name; "+
				"the configured template becomes its body. Existing notes are never overwritten.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The idea to catch, e.g. 'buy milk'. Must not contain / or \\."),
		),
	)
}

// Handle processes the catch_note tool call.
func (t *CatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := strings.TrimSpace(req.GetString("text", ""))
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	msg := t.capture(text)
	if vault.IsError(msg) {
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// NewServer builds an MCP server with the catch tools registered.
func NewServer(version string, capture CaptureFunc) *server.MCPServer {
	s := server.NewMCPServer(
		"catch",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	catchTool := NewCatchTool(capture)
	s.AddTool(catchTool.Definition(), catchTool.Handle)
	return s
}
