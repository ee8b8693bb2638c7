package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolKind classifies how a tool is executed.
type ToolKind int

const (
	// ToolKindFunction is a tool executed in-process by a registered
	// provider (code execution, notebooks, downloads).
	ToolKindFunction ToolKind = iota

	// ToolKindAgent is a tool backed by a nested agent run.
	ToolKindAgent

	// ToolKindMCP is a tool served by a remote MCP server.
	ToolKindMCP
)

// String returns a short label for logs and metrics.
func (k ToolKind) String() string {
	switch k {
	case ToolKindFunction:
		return "function"
	case ToolKindAgent:
		return "agent"
	case ToolKindMCP:
		return "mcp"
	}
	return "unknown"
}

// ToolExecutor executes tool calls.
type ToolExecutor interface {
	// Kind returns the type of tools this executor handles.
	Kind() ToolKind

	// CanExecute checks if this executor can handle the given tool name.
	CanExecute(toolName string) bool

	// Execute runs the tool and returns the result. Failures the model
	// should see are returned as a result with IsError set; a non-nil
	// error aborts the run.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	// ID is the unique call identifier (from the model, e.g., "call_abc123").
	ID string

	// Name is the tool function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Output is the tool output content (text).
	Output string

	// IsError indicates that the output is an error message.
	IsError bool
}

// DecodeArguments unmarshals the call's JSON arguments into v. An empty
// argument string is treated as an empty object.
func DecodeArguments(call ToolCall, v any) error {
	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
	}
	return nil
}

// ErrorResult builds an IsError result for call.
func ErrorResult(call ToolCall, format string, args ...any) *ToolResult {
	return &ToolResult{
		CallID:  call.ID,
		Output:  fmt.Sprintf(format, args...),
		IsError: true,
	}
}
