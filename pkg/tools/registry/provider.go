// Package registry provides a pluggable framework for the tools an agent
// can call. A FunctionProvider encapsulates a set of tool definitions, the
// handler that executes them and optional Prometheus collectors.
//
// The FunctionRegistry aggregates providers and implements
// tools.ToolExecutor, routing each call to the provider owning the tool.
package registry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

// FunctionProvider is a pluggable tool provider.
type FunctionProvider interface {
	// Name returns a unique identifier for this provider (e.g., "code_interpreter").
	Name() string

	// Tools returns the tool definitions this provider contributes.
	Tools() []api.ToolDefinition

	// CanExecute reports whether this provider handles the named tool.
	CanExecute(name string) bool

	// Execute runs a tool call and returns the result.
	Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error)

	// Collectors returns Prometheus collectors for provider-specific metrics.
	Collectors() []prometheus.Collector

	// Close releases any resources held by the provider.
	Close() error
}

// KindProvider is implemented by providers whose tools are not plain
// in-process functions. It only affects metric labels.
type KindProvider interface {
	Kind() tools.ToolKind
}

func providerKind(p FunctionProvider) tools.ToolKind {
	if k, ok := p.(KindProvider); ok {
		return k.Kind()
	}
	return tools.ToolKindFunction
}
