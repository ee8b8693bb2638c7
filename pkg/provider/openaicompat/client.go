package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/provider"
)

// DefaultTimeout bounds one completion request.
const DefaultTimeout = 120 * time.Second

const (
	pathChat   = "/v1/chat/completions"
	pathModels = "/v1/models"
)

// Client talks to a Chat Completions backend over HTTP. It is safe for
// concurrent use once configured.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// ModelMapper rewrites the model name before it is sent, e.g. to map
	// a friendly alias onto a deployment name. Nil sends it unchanged.
	ModelMapper func(string) string

	// Headers are set on every request (OpenAI-Organization and similar).
	Headers map[string]string
}

// NewClient returns a Client for baseURL. A zero timeout means
// DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Complete sends one non-streaming completion request.
func (c *Client) Complete(ctx context.Context, req *provider.ProviderRequest) (*provider.ProviderResponse, error) {
	mapped := *req
	if c.ModelMapper != nil {
		mapped.Model = c.ModelMapper(mapped.Model)
	}
	chatReq := TranslateToChat(&mapped)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewServerError("encoding chat request: " + err.Error())
	}
	debug.Log("providers", "chat completion request",
		"model", chatReq.Model, "messages", len(chatReq.Messages), "tools", len(chatReq.Tools))
	debug.Trace("providers", "chat completion body", "body", debug.Truncate(string(body), 4096))

	var chatResp ChatCompletionResponse
	if err := c.roundTrip(ctx, http.MethodPost, pathChat, bytes.NewReader(body), &chatResp); err != nil {
		return nil, err
	}

	resp := TranslateResponse(&chatResp)
	debug.Log("providers", "chat completion response",
		"model", resp.Model, "status", resp.Status, "items", len(resp.Items),
		"input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	return resp, nil
}

// ListModels queries /v1/models.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	var list ChatModelsResponse
	if err := c.roundTrip(ctx, http.MethodGet, pathModels, nil, &list); err != nil {
		return nil, err
	}
	models := make([]provider.ModelInfo, len(list.Data))
	for i, m := range list.Data {
		models[i] = provider.ModelInfo(m)
	}
	return models, nil
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// roundTrip performs one request and decodes a 2xx JSON body into out.
// All failures come back as *api.APIError.
func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return api.NewServerError("building request: " + err.Error())
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode/100 != 2 {
		return MapHTTPError(httpResp)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return api.NewServerError(fmt.Sprintf("decoding %s response: %v", path, err))
	}
	return nil
}
