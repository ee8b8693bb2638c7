// Package artifacts provides a tool that copies files produced inside the
// sandbox (charts, CSV exports) into a local output directory.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhuss/sandboxagent/pkg/api"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/tools"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

const (
	ToolName         = "download_sandbox_file"
	DefaultOutputDir = "output"
)

var toolParameters = json.RawMessage(`{"type":"object","properties":{"sandbox_path":{"type":"string","description":"Absolute path of the file inside the sandbox"},"output_name":{"type":"string","description":"File name to store it under locally; defaults to the sandbox file name"}},"required":["sandbox_path"]}`)

var downloadedBytes = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "sandboxagent_artifacts_downloaded_bytes_total",
	Help: "Bytes copied out of the sandbox",
})

// Provider implements registry.FunctionProvider for sandbox downloads.
type Provider struct {
	exec      sandbox.Executor
	outputDir string
}

var _ registry.FunctionProvider = (*Provider)(nil)

// ErrEphemeralSandbox is returned by New for executors that discard files
// between executions, where a download could never find anything.
var ErrEphemeralSandbox = errors.New("artifacts: sandbox backend does not keep files between executions")

// New creates a Provider writing below outputDir (DefaultOutputDir when
// empty). The directory is created on first download.
func New(exec sandbox.Executor, outputDir string) (*Provider, error) {
	if exec == nil {
		return nil, fmt.Errorf("artifacts: executor is required")
	}
	if !sandbox.KeepsFiles(exec) {
		return nil, fmt.Errorf("%w (backend %q)", ErrEphemeralSandbox, exec.Name())
	}
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Provider{exec: exec, outputDir: outputDir}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return "artifacts" }

// OutputDir returns the local directory downloads are written to.
func (p *Provider) OutputDir() string { return p.outputDir }

// Tools returns the download tool definition.
func (p *Provider) Tools() []api.ToolDefinition {
	return []api.ToolDefinition{{
		Type:        "function",
		Name:        ToolName,
		Description: "Copy a file created in the sandbox (for example a saved chart) to the user's output directory.",
		Parameters:  toolParameters,
	}}
}

// CanExecute returns true for the download tool.
func (p *Provider) CanExecute(name string) bool { return name == ToolName }

// Execute downloads the file. Missing files and unsafe names are reported
// to the model; an unreachable sandbox or a local write failure ends the run.
func (p *Provider) Execute(ctx context.Context, call tools.ToolCall) (*tools.ToolResult, error) {
	var args struct {
		SandboxPath string `json:"sandbox_path"`
		OutputName  string `json:"output_name"`
	}
	if err := tools.DecodeArguments(call, &args); err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}
	if args.SandboxPath == "" {
		return tools.ErrorResult(call, "sandbox_path is required"), nil
	}

	name := args.OutputName
	if name == "" {
		name = path.Base(args.SandboxPath)
	}
	dest, err := p.destination(name)
	if err != nil {
		return tools.ErrorResult(call, "%v", err), nil
	}

	data, err := sandbox.Download(ctx, p.exec, args.SandboxPath)
	switch {
	case errors.Is(err, sandbox.ErrFileNotFound), errors.Is(err, sandbox.ErrDownloadFailed):
		return tools.ErrorResult(call, "%v", err), nil
	case err != nil:
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", dest, err)
	}

	downloadedBytes.Add(float64(len(data)))
	slog.Info("sandbox file downloaded", "sandbox_path", args.SandboxPath, "local_path", dest, "bytes", len(data))

	return &tools.ToolResult{
		CallID: call.ID,
		Output: fmt.Sprintf("Downloaded %s to %s (%d bytes)", args.SandboxPath, dest, len(data)),
	}, nil
}

// destination joins name to the output directory, refusing names that
// would land outside it.
func (p *Provider) destination(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || !filepath.IsLocal(name) {
		return "", fmt.Errorf("output_name %q must be a relative path inside the output directory", name)
	}
	return filepath.Join(p.outputDir, name), nil
}

// Collectors returns the download byte counter.
func (p *Provider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{downloadedBytes}
}

// Close releases resources.
func (p *Provider) Close() error { return nil }
