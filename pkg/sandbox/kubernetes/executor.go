// Package kubernetes runs code in sandbox pods managed by the agent-sandbox
// controller. Every execution claims a fresh pod from a SandboxTemplate,
// posts the code to the sandbox server inside it and releases the claim.
// Isolation, images and network policy come from the template.
package kubernetes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

// Defaults applied by New.
const (
	DefaultNamespace    = "default"
	DefaultPort         = 8080
	DefaultClaimTimeout = 60 * time.Second
	DefaultTimeout      = 120 * time.Second
)

var (
	// ErrNoTemplate is returned for a language without a configured template.
	ErrNoTemplate = errors.New("no sandbox template for language")

	// ErrClaimTimeout is returned when a claimed sandbox never becomes ready.
	ErrClaimTimeout = errors.New("sandbox claim timed out")

	// ErrAtCapacity is returned when the sandbox server rejects the run.
	ErrAtCapacity = errors.New("sandbox at capacity")
)

// Config holds the settings for an Executor.
type Config struct {
	// Namespace where claims are created.
	Namespace string

	// Templates maps a language to its SandboxTemplate.
	Templates map[sandbox.Language]string

	// NetworkTemplates are used instead of Templates when networking is
	// requested. A language without one falls back to Templates.
	NetworkTemplates map[sandbox.Language]string

	// Port of the sandbox server in the pod.
	Port int

	// ClaimTimeout bounds the wait for a ready pod.
	ClaimTimeout time.Duration

	// Timeout bounds the execution request; half of it is passed to the
	// sandbox server as its own limit.
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Executor is a sandbox.Executor backed by agent-sandbox pods.
type Executor struct {
	client     client.Client
	cfg        Config
	httpClient *http.Client
}

var _ sandbox.Executor = (*Executor)(nil)

// New creates an Executor using c for the Kubernetes API.
func New(c client.Client, cfg Config) (*Executor, error) {
	if c == nil {
		return nil, fmt.Errorf("kubernetes: client is required")
	}
	if len(cfg.Templates) == 0 {
		return nil, fmt.Errorf("kubernetes: at least one template is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = DefaultClaimTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Executor{client: c, cfg: cfg, httpClient: httpClient}, nil
}

// NewInCluster creates an Executor from the ambient kubeconfig: the
// KUBECONFIG file, ~/.kube/config or the in-cluster service account.
func NewInCluster(cfg Config) (*Executor, error) {
	restCfg, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("kubernetes: loading kubeconfig: %w", err)
	}
	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}
	c, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("kubernetes: creating client: %w", err)
	}
	return New(c, cfg)
}

// Name returns "kubernetes".
func (e *Executor) Name() string { return "kubernetes" }

// Execute claims a pod for the request's language, runs the code and
// releases the pod.
func (e *Executor) Execute(ctx context.Context, req *sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	template, err := e.template(req)
	if err != nil {
		return nil, err
	}

	fqdn, release, err := e.claim(ctx, template)
	if err != nil {
		return nil, err
	}
	defer release()

	url := fmt.Sprintf("http://%s:%d/execute", fqdn, e.cfg.Port)
	return e.post(ctx, url, req)
}

func (e *Executor) template(req *sandbox.ExecutionRequest) (string, error) {
	if req.EnableNetworking {
		// The default template may deny egress; never run networked code there.
		if t, ok := e.cfg.NetworkTemplates[req.Language]; ok {
			return t, nil
		}
		return "", fmt.Errorf("%w %q with networking", ErrNoTemplate, req.Language)
	}
	if t, ok := e.cfg.Templates[req.Language]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w %q", ErrNoTemplate, req.Language)
}

type executeRequest struct {
	Code           string `json:"code"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type executeResponse struct {
	Status          string `json:"status"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exit_code"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

func (e *Executor) post(ctx context.Context, url string, req *sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{
		Code:           req.Code,
		TimeoutSeconds: max(1, int(e.cfg.Timeout.Seconds()/2)),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (HTTP 429)", ErrAtCapacity)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, debug.Truncate(string(respBody), 512))
	}

	var decoded executeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &sandbox.ExecutionResult{
		ExitCode: decoded.ExitCode,
		Stdout:   decoded.Stdout,
		Stderr:   decoded.Stderr,
		Status:   decoded.Status,
		Duration: time.Duration(decoded.ExecutionTimeMs) * time.Millisecond,
	}, nil
}
