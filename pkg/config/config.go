// Package config provides unified configuration for sandboxagent.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (OPENAI_API_KEY, COGNITORA_API_KEY,
//     SANDBOXAGENT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for sandboxagent.
type Config struct {
	Provider      ProviderConfig      `yaml:"provider"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Agent         AgentConfig         `yaml:"agent"`
	Server        ServerConfig        `yaml:"server"`
	MCP           MCPConfig           `yaml:"mcp"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfig holds the reasoning service settings.
type ProviderConfig struct {
	Type         string            `yaml:"type"`          // "openai" or "openai-compatible", default: "openai"
	BaseURL      string            `yaml:"base_url"`      // required for openai-compatible
	APIKey       string            `yaml:"api_key"`       // OPENAI_API_KEY
	APIKeyFile   string            `yaml:"api_key_file"`  // _file variant for api_key
	Organization string            `yaml:"organization"`  // optional
	Model        string            `yaml:"model"`         // default: "gpt-4o"
	Timeout      time.Duration     `yaml:"timeout"`       // default: 120s
	ModelMapping map[string]string `yaml:"model_mapping"` // optional
}

// SandboxConfig selects and configures the execution backend.
type SandboxConfig struct {
	Backend    string           `yaml:"backend"` // "hosted", "docker" or "kubernetes", default: "hosted"
	Hosted     HostedConfig     `yaml:"hosted"`
	Docker     DockerConfig     `yaml:"docker"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// HostedConfig holds the hosted code interpreter settings.
type HostedConfig struct {
	BaseURL    string        `yaml:"base_url"`     // default: https://api.cognitora.dev
	APIKey     string        `yaml:"api_key"`      // COGNITORA_API_KEY
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s
}

// DockerConfig holds the local container backend settings.
type DockerConfig struct {
	Images   map[string]string `yaml:"images"`    // language -> image overrides
	MemoryMB int64             `yaml:"memory_mb"` // default: 256
	CPUs     float64           `yaml:"cpus"`      // default: 1
	Timeout  time.Duration     `yaml:"timeout"`   // default: 60s
	SkipPull bool              `yaml:"skip_pull"`
}

// KubernetesConfig claims a sandbox pod per execution through the
// agent-sandbox SandboxClaim API.
type KubernetesConfig struct {
	Namespace        string            `yaml:"namespace"`         // default: "default"
	Templates        map[string]string `yaml:"templates"`         // language -> SandboxTemplate name
	NetworkTemplates map[string]string `yaml:"network_templates"` // language -> template with egress, used when networking is requested
	Port             int               `yaml:"port"`              // sandbox server port, default: 8080
	ClaimTimeout     time.Duration     `yaml:"claim_timeout"`     // default: 60s
	Timeout          time.Duration     `yaml:"timeout"`           // default: 120s
}

// AgentConfig holds run settings shared by all presets.
type AgentConfig struct {
	MaxTurns  int    `yaml:"max_turns"`  // default: 10
	OutputDir string `yaml:"output_dir"` // default: "output"
}

// ServerConfig holds HTTP settings for the MCP server.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8081
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 180s
	Auth         AuthConfig    `yaml:"auth"`

	// AllowNetworking lets callers request outbound network access for
	// their code. Off by default.
	AllowNetworking bool `yaml:"allow_networking"`
}

// AuthConfig protects the MCP endpoint. Health and metrics stay open.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`      // settings for type=jwt
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file,omitempty"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	ServiceTier string `yaml:"service_tier" json:"service_tier,omitempty"`
}

// JWTConfig validates HMAC-signed bearer tokens issued by a trusted party.
type JWTConfig struct {
	Secret       string `yaml:"secret"`
	SecretFile   string `yaml:"secret_file"`   // _file variant for secret
	Issuer       string `yaml:"issuer"`        // optional
	Audience     string `yaml:"audience"`      // optional
	SubjectClaim string `yaml:"subject_claim"` // default: "sub"
	TierClaim    string `yaml:"tier_claim"`    // default: "tier"
}

// RateLimitConfig caps code executions per caller. Zero disables the limit.
type RateLimitConfig struct {
	RequestsPerMinute int            `yaml:"requests_per_minute"`
	Tiers             map[string]int `yaml:"tiers"` // service tier -> requests per minute
}

// MCPConfig lists remote MCP servers whose tools are added to every agent.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url" json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers,omitempty"`
}

// LoggingConfig holds log settings. SANDBOXAGENT_DEBUG and
// SANDBOXAGENT_LOG_LEVEL take precedence when set.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			Type:    "openai",
			Model:   "gpt-4o",
			Timeout: 120 * time.Second,
		},
		Sandbox: SandboxConfig{
			Backend: "hosted",
			Hosted: HostedConfig{
				BaseURL: "https://api.cognitora.dev",
				Timeout: 120 * time.Second,
			},
			Docker: DockerConfig{
				MemoryMB: 256,
				CPUs:     1,
				Timeout:  60 * time.Second,
			},
			Kubernetes: KubernetesConfig{
				Namespace:    "default",
				Port:         8080,
				ClaimTimeout: 60 * time.Second,
				Timeout:      120 * time.Second,
			},
		},
		Agent: AgentConfig{
			MaxTurns:  10,
			OutputDir: "output",
		},
		Server: ServerConfig{
			Port:         8081,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
			Auth: AuthConfig{
				Type: "none",
				JWT: JWTConfig{
					SubjectClaim: "sub",
					TierClaim:    "tier",
				},
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
