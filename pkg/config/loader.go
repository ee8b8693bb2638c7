package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the config file when no explicit path is given.
const EnvConfig = "SANDBOXAGENT_CONFIG"

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SANDBOXAGENT_CONFIG env, ./config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
//
// Credentials are read once here; nothing re-reads the environment later.
func Load(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadServer is Load for processes that only serve the sandbox and never
// call a model. The provider section is not validated.
func LoadServer(configPath string) (*Config, error) {
	cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SANDBOXAGENT_CONFIG environment variable
// 3. ./config.yaml in the current directory
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. The two
// vendor key variables keep their conventional names.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("COGNITORA_API_KEY"); v != "" {
		cfg.Sandbox.Hosted.APIKey = v
	}

	strs := map[string]*string{
		"SANDBOXAGENT_PROVIDER":     &cfg.Provider.Type,
		"SANDBOXAGENT_BASE_URL":     &cfg.Provider.BaseURL,
		"SANDBOXAGENT_MODEL":        &cfg.Provider.Model,
		"SANDBOXAGENT_SANDBOX":      &cfg.Sandbox.Backend,
		"SANDBOXAGENT_SANDBOX_URL":  &cfg.Sandbox.Hosted.BaseURL,
		"SANDBOXAGENT_OUTPUT_DIR":   &cfg.Agent.OutputDir,
		"SANDBOXAGENT_LOG_FORMAT":   &cfg.Logging.Format,
		"SANDBOXAGENT_METRICS_PATH": &cfg.Observability.Metrics.Path,
		"SANDBOXAGENT_OPENAI_ORG":   &cfg.Provider.Organization,
		"SANDBOXAGENT_AUTH_TYPE":    &cfg.Server.Auth.Type,
		"SANDBOXAGENT_NAMESPACE":    &cfg.Sandbox.Kubernetes.Namespace,
		"SANDBOXAGENT_JWT_SECRET":   &cfg.Server.Auth.JWT.Secret,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SANDBOXAGENT_MAX_TURNS":  &cfg.Agent.MaxTurns,
		"SANDBOXAGENT_PORT":       &cfg.Server.Port,
		"SANDBOXAGENT_RATE_LIMIT": &cfg.Server.Auth.RateLimit.RequestsPerMinute,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("SANDBOXAGENT_ALLOW_NETWORKING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SANDBOXAGENT_ALLOW_NETWORKING: %w", err)
		}
		cfg.Server.AllowNetworking = b
	}

	if v := os.Getenv("SANDBOXAGENT_SANDBOX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SANDBOXAGENT_SANDBOX_TIMEOUT: %w", err)
		}
		cfg.Sandbox.Hosted.Timeout = d
		cfg.Sandbox.Docker.Timeout = d
		cfg.Sandbox.Kubernetes.Timeout = d
	}

	// SANDBOXAGENT_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("SANDBOXAGENT_API_KEYS"); v != "" {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			return fmt.Errorf("SANDBOXAGENT_API_KEYS: %w", err)
		}
		cfg.Server.Auth.APIKeys = keys
	}

	// SANDBOXAGENT_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("SANDBOXAGENT_MCP_SERVERS"); v != "" {
		var servers []MCPServerConfig
		if err := json.Unmarshal([]byte(v), &servers); err != nil {
			return fmt.Errorf("SANDBOXAGENT_MCP_SERVERS: %w", err)
		}
		cfg.MCP.Servers = servers
	}

	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Provider.APIKeyFile != "" && cfg.Provider.APIKey == "" {
		val, err := readSecretFile(cfg.Provider.APIKeyFile)
		if err != nil {
			return fmt.Errorf("provider.api_key_file: %w", err)
		}
		cfg.Provider.APIKey = val
	}

	if cfg.Sandbox.Hosted.APIKeyFile != "" && cfg.Sandbox.Hosted.APIKey == "" {
		val, err := readSecretFile(cfg.Sandbox.Hosted.APIKeyFile)
		if err != nil {
			return fmt.Errorf("sandbox.hosted.api_key_file: %w", err)
		}
		cfg.Sandbox.Hosted.APIKey = val
	}

	if cfg.Server.Auth.JWT.SecretFile != "" && cfg.Server.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Server.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("server.auth.jwt.secret_file: %w", err)
		}
		cfg.Server.Auth.JWT.Secret = val
	}

	for i := range cfg.Server.Auth.APIKeys {
		key := &cfg.Server.Auth.APIKeys[i]
		if key.KeyFile != "" && key.Key == "" {
			val, err := readSecretFile(key.KeyFile)
			if err != nil {
				return fmt.Errorf("server.auth.api_keys[%d].key_file: %w", i, err)
			}
			key.Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
