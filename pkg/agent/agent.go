package agent

import (
	"fmt"

	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

// Agent is an LLM agent handle. It holds no conversation state and can be
// run any number of times.
type Agent struct {
	// Name identifies the agent in logs, metrics and hooks.
	Name string

	// Model is the reasoning model identifier (e.g., "gpt-4o").
	Model string

	// Instructions are sent as the system message of every run.
	Instructions string

	// Tools are the providers whose tools the model may call.
	Tools []registry.FunctionProvider

	// Temperature and MaxTokens are forwarded when set.
	Temperature *float64
	MaxTokens   *int

	// ToolChoice is forwarded when set. ToolChoiceRequired applies to
	// the first turn only so the run can still finish.
	ToolChoice *api.ToolChoice
}

// Validate checks the fields every run needs.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agent: name is required")
	}
	if a.Model == "" {
		return fmt.Errorf("agent %s: model is required", a.Name)
	}
	return nil
}
