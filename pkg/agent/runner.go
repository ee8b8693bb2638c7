package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/observability"
	"github.com/rhuss/sandboxagent/pkg/provider"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

// DefaultMaxTurns bounds a run when Config.MaxTurns is not set.
const DefaultMaxTurns = 10

var (
	// ErrMaxTurns is returned when the model is still calling tools after
	// the configured number of turns. The partial Result is returned too.
	ErrMaxTurns = errors.New("agent: max turns exceeded")

	// ErrModelFailed is returned when the backend reports a failed turn
	// (e.g. a content filter) without producing output.
	ErrModelFailed = errors.New("agent: model turn failed")
)

// Config holds configuration for a Runner.
type Config struct {
	// MaxTurns is the maximum number of model turns per run. Zero or
	// negative means DefaultMaxTurns.
	MaxTurns int

	// Hooks receive progress callbacks.
	Hooks Hooks
}

func (c Config) maxTurns() int {
	if c.MaxTurns <= 0 {
		return DefaultMaxTurns
	}
	return c.MaxTurns
}

// Runner drives agents against a reasoning provider.
type Runner struct {
	provider provider.Provider
	cfg      Config
}

// NewRunner creates a Runner. The provider must not be nil.
func NewRunner(p provider.Provider, cfg Config) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("agent: provider must not be nil")
	}
	return &Runner{provider: p, cfg: cfg}, nil
}

// Result is the outcome of one run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Agent is the name of the agent that ran.
	Agent string

	// FinalOutput is the assistant text of the last turn.
	FinalOutput string

	// Items holds every item of the run in order: assistant messages,
	// function calls and their outputs.
	Items []api.Item

	// Usage is the cumulative token usage over all turns.
	Usage api.Usage

	// Turns is the number of model turns taken.
	Turns int

	// Status is the status of the last model turn.
	Status api.ResponseStatus
}

// Run executes the agent on input and returns when the model answers
// without calling a tool.
//
// Tools that fail recoverably (bad arguments, unknown tool names) produce
// error results the model sees on the next turn. A Go error from a tool,
// such as an unreachable sandbox, aborts the run and is returned together
// with the partial Result.
func (r *Runner) Run(ctx context.Context, a *Agent, input string) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	res := &Result{RunID: api.NewRunID(), Agent: a.Name}
	logger := slog.With("agent", a.Name, "run_id", res.RunID)
	start := time.Now()

	err := r.loop(ctx, a, input, res, logger)

	status := "completed"
	switch {
	case errors.Is(err, ErrMaxTurns):
		status = "max_turns"
	case err != nil:
		status = "error"
	}
	observability.AgentRunsTotal.WithLabelValues(a.Name, status).Inc()
	observability.AgentTurns.WithLabelValues(a.Name).Observe(float64(res.Turns))

	if err != nil {
		logger.Warn("agent run failed", "turns", res.Turns, "error", err)
		return res, err
	}
	logger.Info("agent run completed",
		"turns", res.Turns,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (r *Runner) loop(ctx context.Context, a *Agent, input string, res *Result, logger *slog.Logger) error {
	reg := registry.New(a.Tools...)
	available := reg.ToolNames()
	provReq := buildRequest(a, reg.DiscoveredTools(), input)

	if apiErr := provider.ValidateCapabilities(r.provider.Capabilities(), provReq); apiErr != nil {
		return apiErr
	}

	res.Items = append(res.Items, api.NewMessageItem(api.RoleUser, input))
	logger.Debug("agent run started", "model", a.Model, "tools", len(available))

	maxTurns := r.cfg.maxTurns()
	for turn := 1; turn <= maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("agent %s: %w", a.Name, err)
		}

		provResp, err := r.complete(ctx, provReq)
		if err != nil {
			return fmt.Errorf("agent %s turn %d: %w", a.Name, turn, err)
		}

		res.Turns = turn
		res.Status = provResp.Status
		res.Usage.Add(provResp.Usage)
		for i := range provResp.Items {
			if provResp.Items[i].ID == "" {
				provResp.Items[i].ID = api.NewItemID()
			}
		}
		res.Items = append(res.Items, provResp.Items...)
		r.cfg.Hooks.turn(a.Name, turn)

		text := api.Text(provResp.Items)
		calls := extractToolCalls(provResp.Items)
		debug.Log("agent", "turn done", "agent", a.Name, "turn", turn, "status", provResp.Status, "tool_calls", len(calls), "text_bytes", len(text))

		if len(calls) == 0 {
			if provResp.Status == api.ResponseStatusFailed && text == "" {
				return fmt.Errorf("%w: agent %s turn %d", ErrModelFailed, a.Name, turn)
			}
			res.FinalOutput = text
			return nil
		}

		results, err := r.executeTools(ctx, a.Name, reg, calls, available)

		// Outputs produced before a fatal tool error are still recorded.
		provReq.Messages = append(provReq.Messages, buildAssistantToolCallMessage(text, calls))
		for _, tr := range results {
			res.Items = append(res.Items, api.Item{
				ID:     api.NewItemID(),
				Type:   api.ItemTypeFunctionCallOutput,
				Status: api.ItemStatusCompleted,
				FunctionCallOutput: &api.FunctionCallOutputData{
					CallID:  tr.CallID,
					Output:  tr.Output,
					IsError: tr.IsError,
				},
			})
			provReq.Messages = append(provReq.Messages, provider.ProviderMessage{
				Role:       "tool",
				Content:    tr.Output,
				ToolCallID: tr.CallID,
			})
		}
		if err != nil {
			return fmt.Errorf("agent %s turn %d: %w", a.Name, turn, err)
		}

		// A forced tool choice only applies to the opening turn.
		if provReq.ToolChoice != nil && provReq.ToolChoice.String != api.ToolChoiceAuto.String {
			provReq.ToolChoice = nil
		}
	}

	return fmt.Errorf("%w: agent %s stopped after %d turns", ErrMaxTurns, a.Name, maxTurns)
}

// complete performs one provider call and records provider metrics.
func (r *Runner) complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	provName := r.provider.Name()
	start := time.Now()
	resp, err := r.provider.Complete(ctx, req)
	observability.ProviderLatency.WithLabelValues(provName, req.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ProviderRequestsTotal.WithLabelValues(provName, req.Model, "error").Inc()
		return nil, err
	}

	observability.ProviderRequestsTotal.WithLabelValues(provName, req.Model, "success").Inc()
	observability.ProviderTokensTotal.WithLabelValues(provName, req.Model, "input").Add(float64(resp.Usage.InputTokens))
	observability.ProviderTokensTotal.WithLabelValues(provName, req.Model, "output").Add(float64(resp.Usage.OutputTokens))
	return resp, nil
}

// executeTools runs the calls sequentially in the order given. Calls
// naming tools the agent does not offer get error results. On a fatal
// tool error the results gathered so far are returned with the error.
func (r *Runner) executeTools(ctx context.Context, agentName string, exec tools.ToolExecutor, calls []tools.ToolCall, available []string) ([]tools.ToolResult, error) {
	filtered := tools.FilterAvailable(calls, available)
	rejected := make(map[string]tools.ToolResult, len(filtered.Rejected))
	for _, rj := range filtered.Rejected {
		rejected[rj.CallID] = rj
	}

	results := make([]tools.ToolResult, 0, len(calls))
	for _, call := range calls {
		r.cfg.Hooks.toolCall(agentName, call)

		if rj, ok := rejected[call.ID]; ok {
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "rejected").Inc()
			results = append(results, rj)
			r.cfg.Hooks.toolResult(agentName, rj)
			continue
		}

		tr, err := exec.Execute(ctx, call)
		if err != nil {
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
			return results, err
		}
		if tr == nil {
			tr = tools.ErrorResult(call, "tool %s returned no result", call.Name)
		}
		tr.CallID = call.ID

		status := "success"
		if tr.IsError {
			status = "tool_error"
		}
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
		debug.Log("agent", "tool result", "agent", agentName, "tool", call.Name, "call_id", call.ID, "is_error", tr.IsError, "output", debug.Truncate(tr.Output, 200))

		results = append(results, *tr)
		r.cfg.Hooks.toolResult(agentName, *tr)
	}
	return results, nil
}

// buildRequest creates the opening provider request for a run.
func buildRequest(a *Agent, defs []api.ToolDefinition, input string) *provider.ProviderRequest {
	req := &provider.ProviderRequest{
		Model:       a.Model,
		Tools:       provider.ToolsFromDefinitions(defs),
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
		ToolChoice:  a.ToolChoice,
	}
	if len(req.Tools) > 0 {
		sequential := false
		req.ParallelToolCalls = &sequential
	} else {
		req.ToolChoice = nil
	}
	if a.Instructions != "" {
		req.Messages = append(req.Messages, provider.ProviderMessage{Role: "system", Content: a.Instructions})
	}
	req.Messages = append(req.Messages, provider.ProviderMessage{Role: "user", Content: input})
	return req
}

// extractToolCalls returns the function calls among items, in order.
// Calls the backend sent without an ID are given one.
func extractToolCalls(items []api.Item) []tools.ToolCall {
	var calls []tools.ToolCall
	for _, item := range items {
		if item.Type == api.ItemTypeFunctionCall && item.FunctionCall != nil {
			if item.FunctionCall.CallID == "" {
				item.FunctionCall.CallID = api.NewCallID()
			}
			calls = append(calls, tools.ToolCall{
				ID:        item.FunctionCall.CallID,
				Name:      item.FunctionCall.Name,
				Arguments: item.FunctionCall.Arguments,
			})
		}
	}
	return calls
}

// buildAssistantToolCallMessage creates the assistant message that must
// precede the tool role messages in the next request.
func buildAssistantToolCallMessage(text string, calls []tools.ToolCall) provider.ProviderMessage {
	var toolCalls []provider.ProviderToolCall
	for _, tc := range calls {
		toolCalls = append(toolCalls, provider.ProviderToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: provider.ProviderFunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	msg := provider.ProviderMessage{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}
	if text != "" {
		msg.Content = text
	}
	return msg
}
