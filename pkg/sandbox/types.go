// Package sandbox bridges an agent's tool calls to a remote code-execution
// service. The service is reached through the Executor interface; the
// Adapter turns its exit status and captured output into the single text
// result the reasoning model reads.
//
// Isolation, resource limits and timeouts are the execution service's
// concern. Nothing here retains state between calls.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Language is a supported source language tag.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	Bash       Language = "bash"
)

// ErrUnsupportedLanguage is returned by ParseLanguage for unknown tags.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Languages returns the supported language tags in a stable order.
func Languages() []Language {
	return []Language{Python, JavaScript, Bash}
}

// Valid reports whether l is one of the supported tags.
func (l Language) Valid() bool {
	switch l {
	case Python, JavaScript, Bash:
		return true
	}
	return false
}

// ParseLanguage maps a tag or common alias ("py", "js", "node", "sh") to
// a Language. Matching is case-insensitive.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return Python, nil
	case "javascript", "js", "node":
		return JavaScript, nil
	case "bash", "sh", "shell":
		return Bash, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// ExecutionRequest is one code submission. It lives for a single call.
type ExecutionRequest struct {
	Code             string
	Language         Language
	EnableNetworking bool
}

// ExecutionResult is what the execution service reports back.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// Status is the service's own status string, if it reports one.
	Status string

	// Duration is the service-reported execution time, or the observed
	// round trip when the service does not report it.
	Duration time.Duration
}

// Succeeded reports whether the run exited with status zero.
func (r *ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0
}

// Executor runs code on an execution service.
//
// Implementations must return a non-nil result whenever the service
// answered, including for non-zero exit codes. A non-nil error means the
// service could not be reached, rejected the credentials, or timed out.
type Executor interface {
	// Name identifies the backend in logs and metrics (e.g. "hosted", "docker").
	Name() string

	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error)
}

// FileKeeper is implemented by executors whose sandbox keeps files written
// by one execution for the next one.
type FileKeeper interface {
	KeepsFiles() bool
}

// KeepsFiles reports whether files written by one execution on exec are
// still there for the next. Executors that do not implement FileKeeper
// are assumed to start every execution from scratch.
func KeepsFiles(exec Executor) bool {
	fk, ok := exec.(FileKeeper)
	return ok && fk.KeepsFiles()
}

// Close releases resources held by exec, such as a daemon connection, when
// it implements io.Closer.
func Close(exec Executor) error {
	if c, ok := exec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
