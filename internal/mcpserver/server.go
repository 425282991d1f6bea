// File path: internal/mcpserver/server.go
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nicodishanthj/ecomqa/internal/agent"
	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

const (
	ToolAskData        = "ask_data"
	ToolDescribeSchema = "describe_schema"
)

// Backend is the part of the orchestrator the tools call into.
type Backend interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
	Schema(ctx context.Context) ([]sqlite.Table, string, error)
}

type handlers struct {
	backend Backend
}

// New builds an MCP server exposing the question pipeline as tools.
func New(backend Backend, version string) (*server.MCPServer, error) {
	if backend == nil {
		return nil, errors.New("mcpserver: backend required")
	}
	h := &handlers{backend: backend}
	s := server.NewMCPServer("ecomqa", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(askDataTool(), h.askData)
	s.AddTool(describeSchemaTool(), h.describeSchema)
	common.Logger().Info("mcp: server ready", "tools", 2, "version", version)
	return s, nil
}

// Serve runs the server over stdin/stdout until the client disconnects.
func Serve(backend Backend, version string) error {
	s, err := New(backend, version)
	if err != nil {
		return err
	}
	return server.ServeStdio(s)
}

func askDataTool() mcp.Tool {
	return mcp.NewTool(ToolAskData,
		mcp.WithDescription("Answer a natural-language question about the e-commerce sales data. Returns the generated SQL, result rows and a summary."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question about ad sales, total sales or eligibility"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func describeSchemaTool() mcp.Tool {
	return mcp.NewTool(ToolDescribeSchema,
		mcp.WithDescription("List the loaded tables and their columns."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (h *handlers) askData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := agent.ValidateQuestion(question); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := h.backend.Ask(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if answer.Failure != nil {
		common.Logger().Warn("mcp: ask failed", "id", answer.ID, "stage", answer.Failure.Stage)
		return mcp.NewToolResultError(answer.Text()), nil
	}
	common.Logger().Info("mcp: ask completed", "id", answer.ID, "rows", len(answer.Rows))
	return mcp.NewToolResultStructured(answer, answer.Text()), nil
}

func (h *handlers) describeSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, description, err := h.backend.Schema(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("describe schema", err), nil
	}
	if len(tables) == 0 {
		return mcp.NewToolResultText("No tables are loaded."), nil
	}
	return mcp.NewToolResultText(description), nil
}
