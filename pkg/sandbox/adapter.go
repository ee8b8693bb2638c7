package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/observability"
)

// Prefixes that start every formatted result. The model keys its
// retry-or-report decision off them.
const (
	SuccessPrefix = "Execution succeeded"
	FailurePrefix = "Execution failed"
)

// noOutputHint is appended when a successful run printed nothing, which
// almost always means the code computed a value without printing it.
const noOutputHint = "but produced no output. Print results with print() (Python), console.log() (JavaScript) or echo (Bash)."

// Adapter forwards code to an Executor and formats the result as text.
// It is safe for concurrent use if the Executor is.
type Adapter struct {
	exec Executor
}

// NewAdapter creates an Adapter over the given Executor.
func NewAdapter(exec Executor) *Adapter {
	return &Adapter{exec: exec}
}

// Backend returns the name of the underlying executor.
func (a *Adapter) Backend() string {
	return a.exec.Name()
}

// Execute runs code once on the execution service and returns the
// formatted result. The language tag is forwarded as given. Transport and
// authentication failures are returned unchanged as errors.
func (a *Adapter) Execute(ctx context.Context, code string, language Language, enableNetworking bool) (string, error) {
	res, err := a.Run(ctx, &ExecutionRequest{
		Code:             code,
		Language:         language,
		EnableNetworking: enableNetworking,
	})
	if err != nil {
		return "", err
	}
	return FormatResult(res), nil
}

// Run performs the remote call and records metrics, without formatting.
func (a *Adapter) Run(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	backend := a.exec.Name()
	lang := string(req.Language)

	debug.Log("sandbox", "execute",
		"backend", backend,
		"language", lang,
		"networking", req.EnableNetworking,
		"code_bytes", len(req.Code),
	)
	debug.Trace("sandbox", "execute code", "code", req.Code)

	start := time.Now()
	res, err := a.exec.Execute(ctx, req)
	elapsed := time.Since(start)
	observability.SandboxDuration.WithLabelValues(backend, lang).Observe(elapsed.Seconds())

	if err != nil {
		observability.SandboxExecutionsTotal.WithLabelValues(backend, lang, "error").Inc()
		slog.Warn("sandbox execution failed",
			"backend", backend,
			"language", lang,
			"error", err,
		)
		return nil, err
	}

	outcome := "success"
	if !res.Succeeded() {
		outcome = "failure"
	}
	observability.SandboxExecutionsTotal.WithLabelValues(backend, lang, outcome).Inc()

	if res.Duration == 0 {
		res.Duration = elapsed
	}
	debug.Log("sandbox", "execute done",
		"backend", backend,
		"exit_code", res.ExitCode,
		"status", res.Status,
		"stdout_bytes", len(res.Stdout),
		"stderr_bytes", len(res.Stderr),
		"duration", res.Duration,
	)
	return res, nil
}

// FormatResult renders an ExecutionResult for the reasoning model.
//
// Exit code zero yields SuccessPrefix followed by stdout (and stderr, if
// any, under its own label). Any other exit code yields FailurePrefix with
// the exit code, followed by stderr, or stdout when stderr is empty, or
// the service status when both are empty.
func FormatResult(res *ExecutionResult) string {
	stdout := strings.TrimRight(res.Stdout, "\n")
	stderr := strings.TrimRight(res.Stderr, "\n")

	if res.Succeeded() {
		if stdout == "" && stderr == "" {
			return fmt.Sprintf("%s (duration %s) %s", SuccessPrefix, res.Duration.Round(time.Millisecond), noOutputHint)
		}
		var b strings.Builder
		b.WriteString(SuccessPrefix)
		b.WriteString(":\n")
		b.WriteString(stdout)
		if stderr != "" {
			if stdout != "" {
				b.WriteString("\n\n")
			}
			b.WriteString("stderr:\n")
			b.WriteString(stderr)
		}
		return b.String()
	}

	detail := stderr
	if detail == "" {
		detail = stdout
	}
	if detail == "" {
		status := res.Status
		if status == "" {
			status = "unknown"
		}
		detail = "no output captured (status: " + status + ")"
	}
	return fmt.Sprintf("%s (exit code %d):\n%s", FailurePrefix, res.ExitCode, detail)
}
