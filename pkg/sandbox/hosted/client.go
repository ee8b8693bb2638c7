package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

const (
	// DefaultBaseURL is the public endpoint of the hosted interpreter.
	DefaultBaseURL = "https://api.cognitora.dev"

	// DefaultTimeout bounds the whole HTTP exchange. Execution limits are
	// enforced by the service.
	DefaultTimeout = 120 * time.Second

	executePath = "/api/v1/interpreter/execute"

	// maxErrorBody caps how much of an error response ends up in errors.
	maxErrorBody = 512
)

// Config holds the settings for a Client.
type Config struct {
	// APIKey is sent as a bearer token. Required.
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client is a sandbox.Executor backed by the hosted code interpreter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ sandbox.Executor = (*Client)(nil)

// New creates a Client. It fails when no API key is configured.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("hosted: api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Name returns "hosted".
func (c *Client) Name() string { return "hosted" }

// KeepsFiles reports true: the hosted interpreter keeps its file system
// between executions of the same API key.
func (c *Client) KeepsFiles() bool { return true }

// Execute submits the code and waits for the service's verdict.
func (c *Client) Execute(ctx context.Context, req *sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{
		Code:       req.Code,
		Language:   string(req.Language),
		Networking: req.EnableNetworking,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+executePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	debug.Log("sandbox", "hosted request", "url", httpReq.URL.String(), "language", req.Language)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("code interpreter request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	debug.Log("sandbox", "hosted response", "status", resp.StatusCode, "bytes", len(respBody))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (HTTP 429)", ErrAtCapacity)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: debug.Truncate(string(respBody), maxErrorBody)}
	}

	var decoded executeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toResult(&decoded.Data), nil
}

// toResult flattens the typed output chunks and derives the exit code
// from the status when the service omits it.
func toResult(d *executionData) *sandbox.ExecutionResult {
	var stdout, stderr []string
	for _, o := range d.Outputs {
		switch o.Type {
		case "stdout":
			stdout = append(stdout, o.Data)
		case "stderr":
			stderr = append(stderr, o.Data)
		}
	}
	if d.Error != "" {
		stderr = append(stderr, d.Error)
	}

	exitCode := 1
	switch {
	case d.ExitCode != nil:
		exitCode = *d.ExitCode
	case d.Status == "completed" || d.Status == "success":
		exitCode = 0
	}

	return &sandbox.ExecutionResult{
		ExitCode: exitCode,
		Stdout:   strings.Join(stdout, "\n"),
		Stderr:   strings.Join(stderr, "\n"),
		Status:   d.Status,
		Duration: time.Duration(d.ExecutionTimeMs) * time.Millisecond,
	}
}
