package agent

import "github.com/rhuss/sandboxagent/pkg/tools"

// Hooks are optional callbacks invoked synchronously during a run. Nested
// runs (agents used as tools) report through the same hooks with their own
// agent name.
type Hooks struct {
	// OnToolCall is called before a tool executes.
	OnToolCall func(agent string, call tools.ToolCall)

	// OnToolResult is called after a tool returned a result.
	OnToolResult func(agent string, result tools.ToolResult)

	// OnTurn is called after each model turn with the 1-based turn number.
	OnTurn func(agent string, turn int)
}

func (h Hooks) toolCall(agent string, call tools.ToolCall) {
	if h.OnToolCall != nil {
		h.OnToolCall(agent, call)
	}
}

func (h Hooks) toolResult(agent string, result tools.ToolResult) {
	if h.OnToolResult != nil {
		h.OnToolResult(agent, result)
	}
}

func (h Hooks) turn(agent string, n int) {
	if h.OnTurn != nil {
		h.OnTurn(agent, n)
	}
}
