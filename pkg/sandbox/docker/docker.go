// Package docker implements sandbox.Executor with throwaway containers on a
// local Docker daemon. Each execution gets a fresh container which is
// removed afterwards; isolation and limits are the daemon's.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

const (
	DefaultMemoryBytes = 256 << 20
	DefaultNanoCPUs    = 1_000_000_000
	DefaultTimeout     = 60 * time.Second
)

// ErrTimeout is returned when the container outlives the configured timeout.
var ErrTimeout = errors.New("docker sandbox: execution timed out")

// Images maps each language to the image it runs in.
var Images = map[sandbox.Language]string{
	sandbox.Python:     "python:3.12-slim",
	sandbox.JavaScript: "node:22-slim",
	sandbox.Bash:       "bash:5.2",
}

// Config holds the settings for an Executor.
type Config struct {
	// Images overrides entries of the default image table.
	Images map[sandbox.Language]string

	MemoryBytes int64
	NanoCPUs    int64
	Timeout     time.Duration

	// SkipPull assumes the images are already present on the daemon.
	SkipPull bool
}

// Executor runs snippets in containers.
type Executor struct {
	cli    client.APIClient
	cfg    Config
	images map[sandbox.Language]string

	mu     sync.Mutex
	pulled map[string]bool
}

var _ sandbox.Executor = (*Executor)(nil)

// New connects to the daemon configured by the DOCKER_* environment.
func New(cfg Config) (*Executor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewWithClient(cli, cfg), nil
}

// NewWithClient builds an Executor over an existing API client.
func NewWithClient(cli client.APIClient, cfg Config) *Executor {
	if cfg.MemoryBytes <= 0 {
		cfg.MemoryBytes = DefaultMemoryBytes
	}
	if cfg.NanoCPUs <= 0 {
		cfg.NanoCPUs = DefaultNanoCPUs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	images := make(map[sandbox.Language]string, len(Images))
	for lang, img := range Images {
		images[lang] = img
	}
	for lang, img := range cfg.Images {
		images[lang] = img
	}
	return &Executor{cli: cli, cfg: cfg, images: images, pulled: make(map[string]bool)}
}

// Name returns "docker".
func (e *Executor) Name() string { return "docker" }

// Close releases the daemon connection.
func (e *Executor) Close() error {
	return e.cli.Close()
}

// command returns the image and argv that run code for the language.
func (e *Executor) command(lang sandbox.Language, code string) (string, []string, error) {
	img, ok := e.images[lang]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", sandbox.ErrUnsupportedLanguage, lang)
	}
	switch lang {
	case sandbox.Python:
		return img, []string{"python", "-c", code}, nil
	case sandbox.JavaScript:
		return img, []string{"node", "-e", code}, nil
	case sandbox.Bash:
		return img, []string{"bash", "-c", code}, nil
	}
	return "", nil, fmt.Errorf("%w: %q", sandbox.ErrUnsupportedLanguage, lang)
}

// Execute runs the snippet to completion and collects its output.
//
// An unknown language is reported as a failed run rather than an error,
// the same way a remote service rejects it.
func (e *Executor) Execute(ctx context.Context, req *sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	img, cmd, err := e.command(req.Language, req.Code)
	if err != nil {
		return &sandbox.ExecutionResult{ExitCode: 1, Stderr: err.Error(), Status: "rejected"}, nil
	}

	if err := e.ensureImage(ctx, img); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.cli.ContainerCreate(runCtx, &container.Config{
		Image:           img,
		Cmd:             cmd,
		Tty:             false,
		AttachStdout:    true,
		AttachStderr:    true,
		NetworkDisabled: !req.EnableNetworking,
		WorkingDir:      "/tmp",
	}, &container.HostConfig{
		Resources: container.Resources{
			Memory:   e.cfg.MemoryBytes,
			NanoCPUs: e.cfg.NanoCPUs,
		},
	}, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	defer e.remove(resp.ID)

	debug.Log("sandbox", "docker container created", "id", resp.ID, "image", img, "networking", req.EnableNetworking)

	if err := e.cli.ContainerStart(runCtx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := e.cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, e.cfg.Timeout)
		}
		return nil, fmt.Errorf("error waiting for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container wait: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	}
	elapsed := time.Since(start)

	logs, err := e.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read container output: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("failed to demultiplex container output: %w", err)
	}

	status := "completed"
	if exitCode != 0 {
		status = "failed"
	}
	return &sandbox.ExecutionResult{
		ExitCode: int(exitCode),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Status:   status,
		Duration: elapsed,
	}, nil
}

// ensureImage pulls img once per Executor unless pulling is disabled.
func (e *Executor) ensureImage(ctx context.Context, img string) error {
	if e.cfg.SkipPull {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pulled[img] {
		return nil
	}

	debug.Log("sandbox", "docker pull", "image", img)
	pull, err := e.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	_, copyErr := io.Copy(io.Discard, pull)
	pull.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, copyErr)
	}
	e.pulled[img] = true
	return nil
}

// remove deletes the container with a fresh context so cancellation of
// the run does not leak it.
func (e *Executor) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		debug.Log("sandbox", "docker remove failed", "id", id, "error", err)
	}
}
