package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rhuss/sandboxagent/pkg/agent"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/tools"
)

// session runs tasks for one preset and prints their answers.
type session struct {
	ctx    context.Context
	runner *agent.Runner
	preset *preset
	out    io.Writer
}

// runTask runs the preset agent once. Errors that end a single run without
// breaking the session (the turn limit) are reported and swallowed.
func (s *session) runTask(task string) error {
	start := time.Now()
	res, err := s.runner.Run(s.ctx, s.preset.Agent, task)
	if errors.Is(err, agent.ErrMaxTurns) {
		fmt.Fprintf(s.out, "\nThe agent did not finish within %d turns.\n\n", res.Turns)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n%s\n\n", res.FinalOutput)
	fmt.Fprintf(s.out, "(%d turns, %d tokens, %s)\n\n", res.Turns, res.Usage.TotalTokens, time.Since(start).Round(time.Second))
	return nil
}

// repl reads one task per line until EOF, "exit" or "quit".
func (s *session) repl(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	fmt.Fprintf(s.out, "%s is ready. Type a task, or \"exit\" to quit.\n", s.preset.Agent.Name)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			return nil
		}
		if err := s.runTask(line); err != nil {
			return err
		}
	}
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "bye", "q":
		return true
	}
	return false
}

// printNotebook lists what the agent saved during the session.
func (s *session) printNotebook() {
	if s.preset.Notebook == nil {
		return
	}
	entries := s.preset.Notebook.Entries()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(s.out, "Saved during this session:\n")
	for _, e := range entries {
		fmt.Fprintf(s.out, "  [%s] %s (%d bytes)\n", e.Kind, e.Title, len(e.Content))
	}
}

// progressHooks prints tool activity so that long runs show progress.
func progressHooks(w io.Writer) agent.Hooks {
	return agent.Hooks{
		OnToolCall: func(agentName string, call tools.ToolCall) {
			fmt.Fprintf(w, "  %s -> %s %s\n", agentName, call.Name, debug.Truncate(oneLine(call.Arguments), 120))
		},
		OnToolResult: func(agentName string, result tools.ToolResult) {
			marker := "ok"
			if result.IsError {
				marker = "error"
			}
			fmt.Fprintf(w, "  %s <- %s: %s\n", agentName, marker, debug.Truncate(oneLine(result.Output), 120))
		},
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
