package openai

import "time"

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com"

// Config holds configuration for the OpenAI provider adapter.
type Config struct {
	// APIKey is the OpenAI API key. Required for the public endpoint;
	// self-hosted compatible servers may not need one.
	APIKey string

	// BaseURL overrides DefaultBaseURL, e.g. for a gateway in front of
	// OpenAI or a compatible server.
	BaseURL string

	// Organization is sent as the OpenAI-Organization header when set.
	Organization string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// ModelMapping maps agent model names to backend model identifiers.
	// Models not in the map are passed through unchanged.
	ModelMapping map[string]string
}
