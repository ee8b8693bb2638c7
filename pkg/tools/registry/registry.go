package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

var (
	providerToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_provider_tool_executions_total",
			Help: "Tool executions per provider",
		},
		[]string{"provider", "kind", "tool_name", "status"},
	)

	providerToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxagent_provider_tool_duration_seconds",
			Help:    "Tool execution duration per provider",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "tool_name"},
	)
)

func init() {
	prometheus.MustRegister(
		providerToolExecutions,
		providerToolDuration,
	)
}

// FunctionRegistry is the tool executor handed to the agent runner. It
// owns a set of providers and routes each call by tool name.
type FunctionRegistry struct {
	mu             sync.RWMutex
	providers      []FunctionProvider          // registration order
	toolToProvider map[string]FunctionProvider // tool name -> owner
}

var _ tools.ToolExecutor = (*FunctionRegistry)(nil)

// New creates a FunctionRegistry holding the given providers.
func New(providers ...FunctionProvider) *FunctionRegistry {
	r := &FunctionRegistry{
		toolToProvider: make(map[string]FunctionProvider),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p and its collectors. When two providers expose the same
// tool name the earlier one keeps it.
func (r *FunctionRegistry) Register(p FunctionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, p)

	for _, td := range p.Tools() {
		if existing, ok := r.toolToProvider[td.Name]; ok {
			slog.Warn("duplicate tool name ignored", "tool", td.Name, "owner", existing.Name(), "provider", p.Name())
			continue
		}
		r.toolToProvider[td.Name] = p
	}

	for _, c := range p.Collectors() {
		err := prometheus.Register(c)
		var dup prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &dup) {
			slog.Warn("provider collector not registered", "provider", p.Name(), "error", err)
		}
	}

	debug.Log("tools", "registered provider",
		"provider", p.Name(),
		"kind", providerKind(p).String(),
		"tools", len(p.Tools()),
	)
}

// Kind returns ToolKindFunction.
func (r *FunctionRegistry) Kind() tools.ToolKind {
	return tools.ToolKindFunction
}

// CanExecute returns true if any registered provider handles the named tool.
func (r *FunctionRegistry) CanExecute(toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.toolToProvider[toolName]
	return ok
}

// Execute runs call on the provider that owns the tool. A panicking
// provider yields an error result instead of crashing the run.
func (r *FunctionRegistry) Execute(ctx context.Context, call tools.ToolCall) (result *tools.ToolResult, err error) {
	r.mu.RLock()
	p, ok := r.toolToProvider[call.Name]
	r.mu.RUnlock()
	if !ok {
		return tools.ErrorResult(call, "no provider handles tool %q", call.Name), nil
	}

	name, kind := p.Name(), providerKind(p).String()
	start := time.Now()
	record := func(status string) {
		providerToolExecutions.WithLabelValues(name, kind, call.Name, status).Inc()
		providerToolDuration.WithLabelValues(name, call.Name).Observe(time.Since(start).Seconds())
	}

	defer func() {
		if v := recover(); v != nil {
			slog.Error("tool provider panicked", "provider", name, "tool", call.Name, "panic", v)
			record("panic")
			result, err = tools.ErrorResult(call, "internal error: tool %q panicked", call.Name), nil
		}
	}()

	debug.Log("tools", "execute", "provider", name, "tool", call.Name, "call_id", call.ID)
	debug.Trace("tools", "execute arguments", "tool", call.Name, "arguments", call.Arguments)

	result, err = p.Execute(ctx, call)
	switch {
	case err != nil:
		record("error")
		return result, fmt.Errorf("tool %s: %w", call.Name, err)
	case result != nil && result.IsError:
		record("tool_error")
	default:
		record("success")
	}
	return result, nil
}

// DiscoveredTools returns the tool definitions the registry routes, in
// registration order. Definitions shadowed by an earlier provider are
// skipped so the model never sees a tool it cannot reach.
func (r *FunctionRegistry) DiscoveredTools() []api.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []api.ToolDefinition
	for _, p := range r.providers {
		for _, td := range p.Tools() {
			if r.toolToProvider[td.Name] == p {
				defs = append(defs, td)
			}
		}
	}
	return defs
}

// ToolNames returns the names of all routable tools.
func (r *FunctionRegistry) ToolNames() []string {
	defs := r.DiscoveredTools()
	names := make([]string, 0, len(defs))
	for _, td := range defs {
		names = append(names, td.Name)
	}
	return names
}

// Close closes all registered providers and joins their errors.
func (r *FunctionRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close tool provider", "provider", p.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasProviders returns true if at least one provider is registered.
func (r *FunctionRegistry) HasProviders() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}
