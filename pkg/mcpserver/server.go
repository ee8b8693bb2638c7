// Package mcpserver serves the code execution adapter as an MCP tool so
// that any MCP-capable agent can run code on the configured sandbox
// backend.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

// DefaultToolName is the name of the single tool the server offers.
const DefaultToolName = "execute_code"

// Config holds configuration for the MCP server.
type Config struct {
	// Name and Version identify the server to clients.
	Name    string
	Version string

	// ToolName defaults to DefaultToolName.
	ToolName string

	// AllowNetworking lets callers request outbound network access. When
	// false such requests are refused with a tool error.
	AllowNetworking bool
}

// ExecuteInput is the tool's argument object.
type ExecuteInput struct {
	Code       string `json:"code" jsonschema:"the source code to execute"`
	Language   string `json:"language,omitempty" jsonschema:"python, javascript or bash (default python)"`
	Networking bool   `json:"networking,omitempty" jsonschema:"allow outbound network access during execution"`
}

// StatusRejected and RejectedExitCode mark the structured result of a call
// that was refused before reaching the sandbox, so that clients reading
// only structured content never mistake it for a successful run.
const (
	StatusRejected   = "rejected"
	RejectedExitCode = -1
)

// ExecuteOutput is the tool's structured result.
type ExecuteOutput struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Status   string `json:"status,omitempty"`
}

// New builds an MCP server whose only tool runs code through exec.
func New(exec sandbox.Executor, cfg Config) *mcp.Server {
	if cfg.Name == "" {
		cfg.Name = "sandboxagent"
	}
	if cfg.Version == "" {
		cfg.Version = "v1.0.0"
	}
	if cfg.ToolName == "" {
		cfg.ToolName = DefaultToolName
	}

	server := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil)

	h := &handler{adapter: sandbox.NewAdapter(exec), allowNetworking: cfg.AllowNetworking}
	mcp.AddTool(server, &mcp.Tool{
		Name: cfg.ToolName,
		Description: "Execute Python, JavaScript or Bash code in an isolated sandbox (" + exec.Name() + " backend). " +
			"Returns the exit status with stdout, or stderr on failure.",
	}, h.execute)

	return server
}

// Handler serves the server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

type handler struct {
	adapter         *sandbox.Adapter
	allowNetworking bool
}

func (h *handler) execute(ctx context.Context, _ *mcp.CallToolRequest, in ExecuteInput) (*mcp.CallToolResult, ExecuteOutput, error) {
	if in.Code == "" {
		return reject("code is required")
	}
	lang := sandbox.Python
	if in.Language != "" {
		l, err := sandbox.ParseLanguage(in.Language)
		if err != nil {
			return reject(err.Error())
		}
		lang = l
	}
	if in.Networking && !h.allowNetworking {
		return reject("networking is disabled on this server")
	}

	debug.Log("mcp", "execute_code call", "language", lang, "networking", in.Networking)

	res, err := h.adapter.Run(ctx, &sandbox.ExecutionRequest{
		Code:             in.Code,
		Language:         lang,
		EnableNetworking: in.Networking,
	})
	if err != nil {
		return nil, ExecuteOutput{}, fmt.Errorf("sandbox %s: %w", h.adapter.Backend(), err)
	}

	out := ExecuteOutput{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Status:   res.Status,
	}
	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: sandbox.FormatResult(res)}},
	}
	return result, out, nil
}

// reject refuses a call without running it.
func reject(msg string) (*mcp.CallToolResult, ExecuteOutput, error) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
	return res, ExecuteOutput{ExitCode: RejectedExitCode, Stderr: msg, Status: StatusRejected}, nil
}
