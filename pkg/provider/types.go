package provider

import (
	"encoding/json"

	"github.com/rhuss/sandboxagent/pkg/api"
)

// ProviderCapabilities declares what features the backend supports.
type ProviderCapabilities struct {
	// ToolCalling indicates whether the provider supports function/tool calls.
	ToolCalling bool

	// MaxContextWindow is the maximum token count (0 = unknown/unlimited).
	MaxContextWindow int

	// SupportedModels lists models this provider can serve.
	// Empty means "ask ListModels()".
	SupportedModels []string
}

// ProviderRequest is the backend-facing request for one turn.
type ProviderRequest struct {
	Model       string            `json:"model"`
	Messages    []ProviderMessage `json:"messages"`
	Tools       []ProviderTool    `json:"tools,omitempty"`
	ToolChoice  *api.ToolChoice   `json:"tool_choice,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	TopP        *float64          `json:"top_p,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	User        string            `json:"user,omitempty"`

	// ParallelToolCalls is sent only when set. The runner executes calls
	// one at a time either way.
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty"`
}

// ProviderMessage represents a message in the provider's conversation format.
type ProviderMessage struct {
	Role       string             `json:"role"`
	Content    any                `json:"content"`
	ToolCalls  []ProviderToolCall `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	Name       string             `json:"name,omitempty"`
}

// ProviderToolCall represents a tool call entry in an assistant message.
type ProviderToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function ProviderFunctionCall `json:"function"`
}

// ProviderFunctionCall holds the function name and arguments for a tool call.
type ProviderFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ProviderTool represents a tool definition in provider format.
type ProviderTool struct {
	Type     string              `json:"type"`
	Function ProviderFunctionDef `json:"function"`
}

// ProviderFunctionDef holds a function definition for tool use.
type ProviderFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolsFromDefinitions converts tool definitions to provider format.
func ToolsFromDefinitions(defs []api.ToolDefinition) []ProviderTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]ProviderTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, ProviderTool{
			Type: "function",
			Function: ProviderFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// ProviderResponse is the backend's complete response for one turn.
type ProviderResponse struct {
	Items  []api.Item         `json:"items"`
	Usage  api.Usage          `json:"usage"`
	Model  string             `json:"model"`
	Status api.ResponseStatus `json:"status"`
}

// ModelInfo holds information about a model served by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
