package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical name for this server, used for logging and
	// provider naming.
	Name string `yaml:"name"`

	// Transport is "streamable-http" (default) or "sse".
	Transport string `yaml:"transport"`

	// URL is the MCP server endpoint URL.
	URL string `yaml:"url"`

	// Headers are added to every request, typically for authentication.
	Headers map[string]string `yaml:"headers"`
}

// client wraps an SDK ClientSession for one server.
type client struct {
	cfg     ServerConfig
	session *mcp.ClientSession
}

func connect(ctx context.Context, cfg ServerConfig, transport mcp.Transport) (*client, error) {
	c := mcp.NewClient(
		&mcp.Implementation{Name: "sandboxagent", Version: "1.0.0"},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	if transport == nil {
		t, err := newTransport(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating transport for %q: %w", cfg.Name, err)
		}
		transport = t
	}

	session, err := c.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %q: %w", cfg.Name, err)
	}
	debug.Log("tools", "mcp connected", "server", cfg.Name, "url", cfg.URL)
	return &client{cfg: cfg, session: session}, nil
}

// newTransport creates an MCP transport based on the server configuration.
func newTransport(cfg ServerConfig) (mcp.Transport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	var httpClient *http.Client
	if len(cfg.Headers) > 0 {
		httpClient = &http.Client{Transport: &headerTransport{base: http.DefaultTransport, headers: cfg.Headers}}
	}

	switch cfg.Transport {
	case "sse":
		return &mcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}, nil
	case "streamable-http", "":
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", cfg.Transport)
	}
}

// headerTransport is an http.RoundTripper that adds custom headers to
// every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// listTools queries the server for its tools in function-tool form.
func (c *client) listTools(ctx context.Context) ([]api.ToolDefinition, error) {
	var defs []api.ToolDefinition
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		td, err := convertTool(tool)
		if err != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, err)
		}
		defs = append(defs, td)
	}
	return defs, nil
}

// callTool executes a tool call on the server. Invalid arguments and
// tool-level failures become error results; a broken session is returned
// as an error.
func (c *client) callTool(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	var args map[string]any
	if err := tools.DecodeArguments(call, &args); err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: call.Name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("MCP server %q: %w", c.cfg.Name, err)
	}
	return convertResult(call.ID, result), nil
}

func (c *client) close() error {
	return c.session.Close()
}

// convertTool converts an MCP Tool to an api.ToolDefinition.
func convertTool(t *mcp.Tool) (api.ToolDefinition, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return api.ToolDefinition{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}
	return api.ToolDefinition{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}, nil
}

// convertResult joins the text content of an MCP result.
func convertResult(callID string, result *mcp.CallToolResult) *tools.ToolResult {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return &tools.ToolResult{
		CallID:  callID,
		Output:  strings.Join(parts, "\n"),
		IsError: result.IsError,
	}
}
