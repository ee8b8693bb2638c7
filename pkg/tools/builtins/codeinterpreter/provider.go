// Package codeinterpreter provides a FunctionProvider that exposes the
// sandbox adapter to the model as a single code execution tool.
package codeinterpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

const (
	DefaultToolName    = "execute_code"
	DefaultDescription = "Execute code in a secure sandbox and return its output. " +
		"Supports Python, JavaScript and Bash. Print the values you want to see."
)

var _ registry.FunctionProvider = (*Provider)(nil)

// Config holds configuration for the code interpreter provider.
type Config struct {
	// ToolName is the function name the model calls. Defaults to DefaultToolName.
	ToolName string

	// Description is shown to the model. Defaults to DefaultDescription.
	Description string

	// Languages restricts the accepted languages and becomes the schema
	// enum. Empty means all supported languages. With exactly one language
	// the tool takes no language argument.
	Languages []sandbox.Language

	// EnableNetworking is the fixed networking flag for every execution.
	// The model cannot change it.
	EnableNetworking bool
}

// Provider executes code through a sandbox.Adapter.
type Provider struct {
	adapter *sandbox.Adapter
	cfg     Config
}

// New creates a Provider over the given executor.
func New(exec sandbox.Executor, cfg Config) (*Provider, error) {
	if exec == nil {
		return nil, fmt.Errorf("code_interpreter: executor is required")
	}
	if cfg.ToolName == "" {
		cfg.ToolName = DefaultToolName
	}
	if cfg.Description == "" {
		cfg.Description = DefaultDescription
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = sandbox.Languages()
	}
	for _, l := range cfg.Languages {
		if !l.Valid() {
			return nil, fmt.Errorf("code_interpreter: %w: %q", sandbox.ErrUnsupportedLanguage, l)
		}
	}
	return &Provider{adapter: sandbox.NewAdapter(exec), cfg: cfg}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "code_interpreter"
}

// Tools returns the single code execution tool definition.
func (p *Provider) Tools() []api.ToolDefinition {
	properties := map[string]any{
		"code": map[string]any{
			"type":        "string",
			"description": "Source code to execute",
		},
	}
	required := []string{"code"}

	if len(p.cfg.Languages) > 1 {
		enum := make([]string, len(p.cfg.Languages))
		for i, l := range p.cfg.Languages {
			enum[i] = string(l)
		}
		properties["language"] = map[string]any{
			"type":        "string",
			"enum":        enum,
			"description": "Language of the code",
		}
		required = append(required, "language")
	}

	params, _ := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	})

	return []api.ToolDefinition{
		{
			Type:        "function",
			Name:        p.cfg.ToolName,
			Description: p.cfg.Description,
			Parameters:  params,
		},
	}
}

// CanExecute returns true for the configured tool name.
func (p *Provider) CanExecute(toolName string) bool {
	return toolName == p.cfg.ToolName
}

// Execute runs the code. Bad arguments come back as an error result for
// the model to fix; a sandbox that cannot be reached is returned as an
// error and ends the run.
func (p *Provider) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	var args struct {
		Code     string `json:"code"`
		Language string `json:"language"`
	}
	if err := tools.DecodeArguments(call, &args); err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}
	if strings.TrimSpace(args.Code) == "" {
		return tools.ErrorResult(call, "code is required"), nil
	}

	lang, err := p.language(args.Language)
	if err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}

	output, err := p.adapter.Execute(ctx, args.Code, lang, p.cfg.EnableNetworking)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.cfg.ToolName, err)
	}
	return &tools.ToolResult{CallID: call.ID, Output: output}, nil
}

// language resolves the requested tag against the configured set. An
// empty tag selects the first configured language.
func (p *Provider) language(tag string) (sandbox.Language, error) {
	if tag == "" {
		return p.cfg.Languages[0], nil
	}
	lang, err := sandbox.ParseLanguage(tag)
	if err != nil {
		return "", err
	}
	for _, l := range p.cfg.Languages {
		if l == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("language %s is not enabled for %s", lang, p.cfg.ToolName)
}

// Collectors returns nil; sandbox metrics are recorded by the adapter.
func (p *Provider) Collectors() []prometheus.Collector {
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
