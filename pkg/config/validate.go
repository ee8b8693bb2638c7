package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	return errors.Join(append(c.validateProvider(), c.validateCommon()...)...)
}

// ValidateServer is Validate without the provider section.
func (c *Config) ValidateServer() error {
	return errors.Join(c.validateCommon()...)
}

func (c *Config) validateProvider() []error {
	var errs []error

	switch c.Provider.Type {
	case "openai":
		if c.Provider.APIKey == "" {
			errs = append(errs, fmt.Errorf("provider.api_key is required (set OPENAI_API_KEY)"))
		}
	case "openai-compatible":
		if c.Provider.BaseURL == "" {
			errs = append(errs, fmt.Errorf("provider.base_url is required when provider.type is \"openai-compatible\""))
		}
	default:
		errs = append(errs, fmt.Errorf("provider.type must be \"openai\" or \"openai-compatible\", got %q", c.Provider.Type))
	}

	if c.Provider.Model == "" {
		errs = append(errs, fmt.Errorf("provider.model is required"))
	}

	return errs
}

func (c *Config) validateCommon() []error {
	var errs []error

	switch c.Sandbox.Backend {
	case "hosted":
		if c.Sandbox.Hosted.APIKey == "" {
			errs = append(errs, fmt.Errorf("sandbox.hosted.api_key is required (set COGNITORA_API_KEY)"))
		}
		if c.Sandbox.Hosted.BaseURL == "" {
			errs = append(errs, fmt.Errorf("sandbox.hosted.base_url is required"))
		}
	case "docker":
		if c.Sandbox.Docker.MemoryMB <= 0 {
			errs = append(errs, fmt.Errorf("sandbox.docker.memory_mb must be > 0, got %d", c.Sandbox.Docker.MemoryMB))
		}
		if c.Sandbox.Docker.CPUs <= 0 {
			errs = append(errs, fmt.Errorf("sandbox.docker.cpus must be > 0, got %g", c.Sandbox.Docker.CPUs))
		}
	case "kubernetes":
		k := c.Sandbox.Kubernetes
		if len(k.Templates) == 0 {
			errs = append(errs, fmt.Errorf("sandbox.kubernetes.templates must map at least one language"))
		}
		if k.Namespace == "" {
			errs = append(errs, fmt.Errorf("sandbox.kubernetes.namespace is required"))
		}
		if k.Port <= 0 {
			errs = append(errs, fmt.Errorf("sandbox.kubernetes.port must be > 0, got %d", k.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.backend must be \"hosted\", \"docker\" or \"kubernetes\", got %q", c.Sandbox.Backend))
	}

	if c.Agent.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_turns must be > 0, got %d", c.Agent.MaxTurns))
	}

	seen := make(map[string]bool)
	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		} else if seen[srv.Name] {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name %q is duplicated", i, srv.Name))
		}
		seen[srv.Name] = true
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch srv.Transport {
		case "", "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	errs = append(errs, c.validateAuth()...)

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	a := c.Server.Auth

	switch a.Type {
	case "", "none":
	case "apikey":
		if len(a.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("server.auth.api_keys must not be empty when server.auth.type is \"apikey\""))
		}
		for i, k := range a.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("server.auth.api_keys[%d].key is required", i))
			}
			if k.Subject == "" {
				errs = append(errs, fmt.Errorf("server.auth.api_keys[%d].subject is required", i))
			}
		}
	case "jwt":
		if a.JWT.Secret == "" {
			errs = append(errs, fmt.Errorf("server.auth.jwt.secret is required when server.auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("server.auth.type must be \"none\", \"apikey\" or \"jwt\", got %q", a.Type))
	}

	if a.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.auth.rate_limit.requests_per_minute must be >= 0, got %d", a.RateLimit.RequestsPerMinute))
	}
	for tier, rpm := range a.RateLimit.Tiers {
		if rpm < 0 {
			errs = append(errs, fmt.Errorf("server.auth.rate_limit.tiers[%s] must be >= 0, got %d", tier, rpm))
		}
	}

	return errs
}
