package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

// mockProvider implements FunctionProvider for testing.
type mockProvider struct {
	name       string
	kind       tools.ToolKind
	toolDefs   []api.ToolDefinition
	execFn     func(context.Context, tools.ToolCall) (*tools.ToolResult, error)
	collectors []prometheus.Collector
	closeErr   error
	closed     bool
}

func (m *mockProvider) Name() string                       { return m.name }
func (m *mockProvider) Kind() tools.ToolKind               { return m.kind }
func (m *mockProvider) Tools() []api.ToolDefinition        { return m.toolDefs }
func (m *mockProvider) Collectors() []prometheus.Collector { return m.collectors }

func (m *mockProvider) CanExecute(name string) bool {
	for _, td := range m.toolDefs {
		if td.Name == name {
			return true
		}
	}
	return false
}

func (m *mockProvider) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	if m.execFn != nil {
		return m.execFn(ctx, call)
	}
	return &tools.ToolResult{CallID: call.ID, Output: "default"}, nil
}

func (m *mockProvider) Close() error {
	m.closed = true
	return m.closeErr
}

var (
	_ FunctionProvider = (*mockProvider)(nil)
	_ KindProvider     = (*mockProvider)(nil)
)

func TestRegistry_DiscoverTools(t *testing.T) {
	reg := New(&mockProvider{
		name: "test-provider",
		toolDefs: []api.ToolDefinition{
			{Type: "function", Name: "tool_a", Description: "Tool A"},
			{Type: "function", Name: "tool_b", Description: "Tool B"},
		},
	})

	discovered := reg.DiscoveredTools()
	if len(discovered) != 2 {
		t.Fatalf("DiscoveredTools() returned %d tools, want 2", len(discovered))
	}
	names := reg.ToolNames()
	if names[0] != "tool_a" || names[1] != "tool_b" {
		t.Errorf("ToolNames() = %v", names)
	}
	if !reg.CanExecute("tool_a") || reg.CanExecute("tool_c") {
		t.Error("CanExecute does not match registered tools")
	}
}

func TestRegistry_Execute(t *testing.T) {
	reg := New(&mockProvider{
		name:     "calc",
		toolDefs: []api.ToolDefinition{{Type: "function", Name: "add"}},
		execFn: func(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
			var args struct {
				A, B int
			}
			json.Unmarshal([]byte(call.Arguments), &args)
			return &tools.ToolResult{CallID: call.ID, Output: fmt.Sprintf("%d", args.A+args.B)}, nil
		},
	})

	before := testutil.ToFloat64(providerToolExecutions.WithLabelValues("calc", "function", "add", "success"))

	result, err := reg.Execute(context.Background(), tools.ToolCall{ID: "call_1", Name: "add", Arguments: `{"A":3,"B":4}`})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.CallID != "call_1" || result.Output != "7" || result.IsError {
		t.Errorf("result = %+v", result)
	}

	after := testutil.ToFloat64(providerToolExecutions.WithLabelValues("calc", "function", "add", "success"))
	if after != before+1 {
		t.Errorf("success counter = %v, want %v", after, before+1)
	}
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	result, err := New().Execute(context.Background(), tools.ToolCall{ID: "call_1", Name: "nonexistent"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.IsError || result.CallID != "call_1" {
		t.Errorf("result = %+v", result)
	}
}

func TestRegistry_ToolNameConflict(t *testing.T) {
	p1 := &mockProvider{
		name:     "provider-1",
		toolDefs: []api.ToolDefinition{{Type: "function", Name: "shared_tool"}},
		execFn: func(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
			return &tools.ToolResult{CallID: call.ID, Output: "from-p1"}, nil
		},
	}
	p2 := &mockProvider{
		name: "provider-2",
		toolDefs: []api.ToolDefinition{
			{Type: "function", Name: "shared_tool"},
			{Type: "function", Name: "own_tool"},
		},
		execFn: func(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
			return &tools.ToolResult{CallID: call.ID, Output: "from-p2"}, nil
		},
	}
	reg := New(p1, p2)

	result, err := reg.Execute(context.Background(), tools.ToolCall{ID: "call_1", Name: "shared_tool"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "from-p1" {
		t.Errorf("Output = %q, want %q (first provider should win)", result.Output, "from-p1")
	}

	discovered := reg.DiscoveredTools()
	if len(discovered) != 2 {
		t.Errorf("DiscoveredTools() returned %d tools, want 2 (shadowed definition hidden)", len(discovered))
	}
}

func TestRegistry_PanicRecovery(t *testing.T) {
	reg := New(&mockProvider{
		name:     "panicky",
		toolDefs: []api.ToolDefinition{{Type: "function", Name: "crash_tool"}},
		execFn: func(context.Context, tools.ToolCall) (*tools.ToolResult, error) {
			panic("something went terribly wrong")
		},
	})

	result, err := reg.Execute(context.Background(), tools.ToolCall{ID: "call_panic", Name: "crash_tool"})
	if err != nil {
		t.Fatalf("expected nil error after panic recovery, got: %v", err)
	}
	if result == nil || !result.IsError || result.CallID != "call_panic" {
		t.Fatalf("result = %+v", result)
	}
	if got := testutil.ToFloat64(providerToolExecutions.WithLabelValues("panicky", "function", "crash_tool", "panic")); got < 1 {
		t.Errorf("panic counter = %v", got)
	}
}

func TestRegistry_ExecuteError(t *testing.T) {
	providerErr := errors.New("sandbox unreachable")
	reg := New(&mockProvider{
		name:     "error-provider",
		kind:     tools.ToolKindAgent,
		toolDefs: []api.ToolDefinition{{Type: "function", Name: "fail_tool"}},
		execFn: func(context.Context, tools.ToolCall) (*tools.ToolResult, error) {
			return nil, providerErr
		},
	})

	_, err := reg.Execute(context.Background(), tools.ToolCall{ID: "call_err", Name: "fail_tool"})
	if !errors.Is(err, providerErr) {
		t.Fatalf("error = %v, want wrapped %v", err, providerErr)
	}
	if got := testutil.ToFloat64(providerToolExecutions.WithLabelValues("error-provider", "agent", "fail_tool", "error")); got != 1 {
		t.Errorf("error counter = %v, want 1", got)
	}
}

func TestRegistry_ExecuteToolError(t *testing.T) {
	reg := New(&mockProvider{
		name:     "tool-err-provider",
		toolDefs: []api.ToolDefinition{{Type: "function", Name: "tool_err"}},
		execFn: func(_ context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
			return &tools.ToolResult{CallID: call.ID, Output: "tool-level error", IsError: true}, nil
		},
	})

	result, err := reg.Execute(context.Background(), tools.ToolCall{ID: "call_te", Name: "tool_err"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError = true")
	}
	if got := testutil.ToFloat64(providerToolExecutions.WithLabelValues("tool-err-provider", "function", "tool_err", "tool_error")); got != 1 {
		t.Errorf("tool_error counter = %v, want 1", got)
	}
}

func TestRegistry_Collectors(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "sandboxagent_test_provider_collector_total", Help: "test"})
	p := &mockProvider{name: "collecting", collectors: []prometheus.Collector{c}}

	New(p)
	// Registering the same collector twice must not panic.
	New(p)

	if err := prometheus.Register(c); err == nil {
		t.Error("collector should already be registered")
	}
}

func TestRegistry_EmptyRegistry(t *testing.T) {
	reg := New()

	if len(reg.DiscoveredTools()) != 0 || len(reg.ToolNames()) != 0 {
		t.Error("expected no tools")
	}
	if reg.HasProviders() {
		t.Error("expected HasProviders() = false for empty registry")
	}
	if reg.Kind() != tools.ToolKindFunction {
		t.Errorf("Kind() = %v", reg.Kind())
	}
	if err := reg.Close(); err != nil {
		t.Errorf("Close() on empty registry failed: %v", err)
	}
}

func TestRegistry_Close(t *testing.T) {
	closeErr := errors.New("close failed")
	p1 := &mockProvider{name: "p1", toolDefs: []api.ToolDefinition{{Type: "function", Name: "t1"}}, closeErr: closeErr}
	p2 := &mockProvider{name: "p2", toolDefs: []api.ToolDefinition{{Type: "function", Name: "t2"}}}
	reg := New(p1, p2)

	if err := reg.Close(); !errors.Is(err, closeErr) {
		t.Fatalf("Close() = %v, want %v", err, closeErr)
	}
	if !p1.closed || !p2.closed {
		t.Error("all providers should be closed even after a failure")
	}
}
