package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

var asToolParams = json.RawMessage(`{"type":"object","properties":{"input":{"type":"string","description":"The task or question for the agent"}},"required":["input"]}`)

// agentTool exposes an agent as a single function tool. Each call starts
// a fresh run of the agent.
type agentTool struct {
	agent       *Agent
	runner      *Runner
	name        string
	description string
}

var (
	_ registry.FunctionProvider = (*agentTool)(nil)
	_ registry.KindProvider     = (*agentTool)(nil)
)

// AsTool wraps the agent as a tool another agent can call. The tool takes
// {"input": string} and returns the sub-agent's final output. An empty
// name defaults to the agent name.
func (a *Agent) AsTool(r *Runner, name, description string) registry.FunctionProvider {
	if name == "" {
		name = a.Name
	}
	if description == "" {
		description = fmt.Sprintf("Delegate a task to the %s agent.", a.Name)
	}
	return &agentTool{agent: a, runner: r, name: name, description: description}
}

func (t *agentTool) Name() string { return "agent:" + t.agent.Name }

func (t *agentTool) Kind() tools.ToolKind { return tools.ToolKindAgent }

func (t *agentTool) Tools() []api.ToolDefinition {
	return []api.ToolDefinition{{
		Type:        "function",
		Name:        t.name,
		Description: t.description,
		Parameters:  asToolParams,
	}}
}

func (t *agentTool) CanExecute(name string) bool { return name == t.name }

func (t *agentTool) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	var args struct {
		Input string `json:"input"`
	}
	if err := tools.DecodeArguments(call, &args); err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}
	if strings.TrimSpace(args.Input) == "" {
		return tools.ErrorResult(call, "%s: input is required", t.name), nil
	}

	res, err := t.runner.Run(ctx, t.agent, args.Input)
	if errors.Is(err, ErrMaxTurns) || errors.Is(err, ErrModelFailed) {
		return tools.ErrorResult(call, "%s did not finish: %v", t.agent.Name, err), nil
	}
	if err != nil {
		return nil, fmt.Errorf("sub-agent %s: %w", t.agent.Name, err)
	}
	return &tools.ToolResult{CallID: call.ID, Output: res.FinalOutput}, nil
}

func (t *agentTool) Collectors() []prometheus.Collector { return nil }

// Close is a no-op. The sub-agent's own tools belong to the caller.
func (t *agentTool) Close() error { return nil }
