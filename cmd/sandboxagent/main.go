// Command sandboxagent runs an LLM agent that solves tasks by executing
// code in a remote sandbox.
//
// Usage:
//
//	sandboxagent [-config config.yaml] [-preset tasks|live|research|charts] [-prompt "..."] [-demo]
//
// Without -prompt or -demo an interactive session reads one task per line
// until "exit" or "quit". Credentials come from OPENAI_API_KEY and
// COGNITORA_API_KEY (or the config file); see pkg/config for all settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/sandboxagent/pkg/agent"
	"github.com/rhuss/sandboxagent/pkg/config"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/provider/openai"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/sandbox/backend"
	"github.com/rhuss/sandboxagent/pkg/tools/mcp"
	"github.com/rhuss/sandboxagent/pkg/tools/registry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sandboxagent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	presetName := flag.String("preset", "tasks", "agent preset: tasks, live, research or charts")
	prompt := flag.String("prompt", "", "run a single task and exit")
	demo := flag.Bool("demo", false, "run the preset's sample tasks and exit")
	quiet := flag.Bool("quiet", false, "do not print tool calls")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec, err := backend.New(cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("creating sandbox backend: %w", err)
	}
	defer sandbox.Close(exec)

	prov, err := openai.New(openai.Config{
		APIKey:       cfg.Provider.APIKey,
		BaseURL:      cfg.Provider.BaseURL,
		Organization: cfg.Provider.Organization,
		Timeout:      cfg.Provider.Timeout,
		ModelMapping: cfg.Provider.ModelMapping,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	remote, err := connectMCPServers(ctx, cfg.MCP.Servers)
	if err != nil {
		return err
	}
	defer closeAll(remote)

	var hooks agent.Hooks
	if !*quiet {
		hooks = progressHooks(os.Stderr)
	}
	runner, err := agent.NewRunner(prov, agent.Config{MaxTurns: cfg.Agent.MaxTurns, Hooks: hooks})
	if err != nil {
		return err
	}

	p, err := buildPreset(*presetName, presetOptions{
		Model:     cfg.Provider.Model,
		Executor:  exec,
		Runner:    runner,
		OutputDir: cfg.Agent.OutputDir,
	})
	if err != nil {
		return err
	}
	p.Agent.Tools = append(p.Agent.Tools, remote...)

	slog.Info("agent ready",
		"preset", *presetName,
		"agent", p.Agent.Name,
		"model", cfg.Provider.Model,
		"provider", prov.Name(),
		"sandbox", exec.Name(),
	)

	s := &session{ctx: ctx, runner: runner, preset: p, out: os.Stdout}
	switch {
	case *prompt != "":
		err = s.runTask(*prompt)
	case *demo:
		for _, task := range p.Samples {
			if err = s.runTask(task); err != nil {
				break
			}
		}
	default:
		err = s.repl(os.Stdin)
	}
	s.printNotebook()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// connectMCPServers connects every configured MCP server. A server that
// cannot be reached is fatal.
func connectMCPServers(ctx context.Context, servers []config.MCPServerConfig) ([]registry.FunctionProvider, error) {
	var providers []registry.FunctionProvider
	for _, srv := range servers {
		p, err := mcp.Connect(ctx, mcp.ServerConfig{
			Name:      srv.Name,
			Transport: srv.Transport,
			URL:       srv.URL,
			Headers:   srv.Headers,
		})
		if err != nil {
			closeAll(providers)
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func closeAll(providers []registry.FunctionProvider) {
	for _, p := range providers {
		if err := p.Close(); err != nil {
			slog.Warn("closing tool provider", "provider", p.Name(), "error", err)
		}
	}
}
