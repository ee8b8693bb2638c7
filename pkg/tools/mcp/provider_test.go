package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/sandboxagent/pkg/mcpserver"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/sandbox/sandboxtest"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

// connectTo runs server over in-memory transports and returns a
// connected Provider.
func connectTo(t *testing.T, server *mcp.Server) *Provider {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	p, err := ConnectWithTransport(ctx, ServerConfig{Name: "test-server"}, clientTransport)
	if err != nil {
		t.Fatalf("ConnectWithTransport: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProviderDiscoversSandboxTool(t *testing.T) {
	p := connectTo(t, mcpserver.New(&sandboxtest.Executor{}, mcpserver.Config{}))

	if p.Name() != "mcp:test-server" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.Kind() != tools.ToolKindMCP {
		t.Errorf("Kind() = %v, want mcp", p.Kind())
	}
	defs := p.Tools()
	if len(defs) != 1 || defs[0].Name != mcpserver.DefaultToolName || defs[0].Type != "function" {
		t.Fatalf("Tools() = %+v", defs)
	}

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(defs[0].Parameters, &schema); err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if _, ok := schema.Properties["code"]; !ok {
		t.Errorf("schema lacks code property: %s", defs[0].Parameters)
	}
	if !p.CanExecute(mcpserver.DefaultToolName) || p.CanExecute("other") {
		t.Error("CanExecute mismatch")
	}
}

func TestProviderExecute(t *testing.T) {
	exec := &sandboxtest.Executor{Respond: sandboxtest.Stdout("4")}
	p := connectTo(t, mcpserver.New(exec, mcpserver.Config{}))

	res, err := p.Execute(context.Background(), tools.ToolCall{
		ID:        "call_1",
		Name:      mcpserver.DefaultToolName,
		Arguments: `{"code":"print(2+2)","language":"python"}`,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CallID != "call_1" || res.IsError {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Output, sandbox.SuccessPrefix) || !strings.Contains(res.Output, "4") {
		t.Errorf("Output = %q", res.Output)
	}
	if got := exec.Requests(); len(got) != 1 || got[0].Code != "print(2+2)" {
		t.Errorf("sandbox requests = %+v", got)
	}
}

func TestProviderToolError(t *testing.T) {
	p := connectTo(t, mcpserver.New(&sandboxtest.Executor{}, mcpserver.Config{}))

	res, err := p.Execute(context.Background(), tools.ToolCall{
		ID:        "call_2",
		Name:      mcpserver.DefaultToolName,
		Arguments: `{"code":""}`,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Output, "code is required") {
		t.Errorf("result = %+v", res)
	}
}

func TestProviderInvalidArguments(t *testing.T) {
	p := connectTo(t, mcpserver.New(&sandboxtest.Executor{}, mcpserver.Config{}))

	res, err := p.Execute(context.Background(), tools.ToolCall{ID: "c", Name: mcpserver.DefaultToolName, Arguments: `{`})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for malformed JSON")
	}
}

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{"default", ServerConfig{URL: "http://localhost:8081/mcp"}, false},
		{"sse", ServerConfig{URL: "http://localhost:8081/sse", Transport: "sse"}, false},
		{"headers", ServerConfig{URL: "http://localhost/mcp", Headers: map[string]string{"Authorization": "Bearer x"}}, false},
		{"missing url", ServerConfig{}, true},
		{"unknown transport", ServerConfig{URL: "http://x", Transport: "stdio"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTransport(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("newTransport() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
