package mcp

import (
	"context"
	"log/slog"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

// Provider exposes the tools of one MCP server to an agent.
type Provider struct {
	client *client
	defs   []api.ToolDefinition
	names  []string
}

var (
	_ registry.FunctionProvider = (*Provider)(nil)
	_ registry.KindProvider     = (*Provider)(nil)
)

// Connect dials the server described by cfg and discovers its tools.
func Connect(ctx context.Context, cfg ServerConfig) (*Provider, error) {
	return ConnectWithTransport(ctx, cfg, nil)
}

// ConnectWithTransport is Connect over an existing transport. A nil
// transport is created from cfg.
func ConnectWithTransport(ctx context.Context, cfg ServerConfig, transport mcp.Transport) (*Provider, error) {
	c, err := connect(ctx, cfg, transport)
	if err != nil {
		return nil, err
	}
	defs, err := c.listTools(ctx)
	if err != nil {
		_ = c.close()
		return nil, err
	}

	p := &Provider{client: c, defs: defs}
	for _, d := range defs {
		p.names = append(p.names, d.Name)
	}
	slog.Info("discovered MCP tools", "server", cfg.Name, "count", len(defs))
	return p, nil
}

// Name returns "mcp:" followed by the server name.
func (p *Provider) Name() string { return "mcp:" + p.client.cfg.Name }

// Kind returns ToolKindMCP.
func (p *Provider) Kind() tools.ToolKind { return tools.ToolKindMCP }

// Tools returns the tools discovered at connect time.
func (p *Provider) Tools() []api.ToolDefinition { return p.defs }

// CanExecute reports whether the server offered the named tool.
func (p *Provider) CanExecute(name string) bool { return slices.Contains(p.names, name) }

// Execute forwards the call to the server.
func (p *Provider) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	return p.client.callTool(ctx, call)
}

// Collectors returns nil.
func (p *Provider) Collectors() []prometheus.Collector { return nil }

// Close closes the MCP session.
func (p *Provider) Close() error { return p.client.close() }
