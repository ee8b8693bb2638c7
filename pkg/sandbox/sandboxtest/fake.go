// Package sandboxtest provides an in-process sandbox.Executor for tests.
package sandboxtest

import (
	"context"
	"sync"

	"github.com/rhuss/sandboxagent/pkg/sandbox"
)

// Executor records every request and answers through Respond.
type Executor struct {
	// Respond produces the result for a request. When nil, every request
	// succeeds with empty output.
	Respond func(req sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error)

	// Ephemeral makes the fake behave like a backend that discards files
	// after every execution.
	Ephemeral bool

	mu       sync.Mutex
	requests []sandbox.ExecutionRequest
}

var _ sandbox.Executor = (*Executor)(nil)

// Name returns "fake".
func (e *Executor) Name() string { return "fake" }

// KeepsFiles reports !Ephemeral.
func (e *Executor) KeepsFiles() bool { return !e.Ephemeral }

// Execute records req and delegates to Respond.
func (e *Executor) Execute(_ context.Context, req *sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	e.mu.Lock()
	e.requests = append(e.requests, *req)
	e.mu.Unlock()

	if e.Respond == nil {
		return &sandbox.ExecutionResult{Status: "completed"}, nil
	}
	return e.Respond(*req)
}

// Requests returns a copy of the recorded requests.
func (e *Executor) Requests() []sandbox.ExecutionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sandbox.ExecutionRequest(nil), e.requests...)
}

// Stdout returns a Respond func that always exits 0 with the given stdout.
func Stdout(out string) func(sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	return func(sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
		return &sandbox.ExecutionResult{ExitCode: 0, Stdout: out, Status: "completed"}, nil
	}
}

// Fail returns a Respond func that always exits with code and stderr.
func Fail(code int, stderr string) func(sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
	return func(sandbox.ExecutionRequest) (*sandbox.ExecutionResult, error) {
		return &sandbox.ExecutionResult{ExitCode: code, Stderr: stderr, Status: "error"}, nil
	}
}
