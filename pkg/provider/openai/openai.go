package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/rhuss/sandboxagent/pkg/provider"
	"github.com/rhuss/sandboxagent/pkg/provider/openaicompat"
)

// Provider implements provider.Provider for OpenAI.
type Provider struct {
	cfg    Config
	client *openaicompat.Client
	caps   provider.ProviderCapabilities
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Provider with the given configuration.
func New(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" && cfg.BaseURL == DefaultBaseURL {
		return nil, fmt.Errorf("openai: APIKey is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	client := openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)

	if len(cfg.ModelMapping) > 0 {
		mapping := cfg.ModelMapping
		client.ModelMapper = func(model string) string {
			if mapped, ok := mapping[model]; ok {
				return mapped
			}
			return model
		}
	}
	if cfg.Organization != "" {
		client.Headers = map[string]string{"OpenAI-Organization": cfg.Organization}
	}

	return &Provider{
		cfg:    cfg,
		client: client,
		caps: provider.ProviderCapabilities{
			ToolCalling: true,
		},
	}, nil
}

// Name returns "openai" for the public endpoint and "openai-compatible"
// for any other base URL.
func (p *Provider) Name() string {
	if p.cfg.BaseURL == DefaultBaseURL {
		return "openai"
	}
	return "openai-compatible"
}

// Capabilities returns what this provider supports.
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return p.caps
}

// Complete performs one inference turn against the Chat Completions endpoint.
func (p *Provider) Complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	return p.client.Complete(ctx, req)
}

// ListModels returns available models from the /v1/models endpoint.
func (p *Provider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// Close releases provider resources.
func (p *Provider) Close() error {
	return p.client.Close()
}
