// Command sandbox-mcp serves the code execution tool over MCP
// (streamable HTTP) so that any MCP-capable agent can run code on the
// configured sandbox backend.
//
// Endpoints:
//
//	/mcp      - MCP streamable HTTP endpoint (tool: execute_code)
//	/healthz  - liveness probe
//	/metrics  - Prometheus metrics (observability.metrics.path)
//
// The provider section of the config file is not used. Set
// server.allow_networking (or SANDBOXAGENT_ALLOW_NETWORKING=true) to let
// callers enable networking.
// server.auth selects API key or JWT bearer authentication for /mcp.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rhuss/sandboxagent/pkg/config"
	"github.com/rhuss/sandboxagent/pkg/debug"
	"github.com/rhuss/sandboxagent/pkg/mcpserver"
	"github.com/rhuss/sandboxagent/pkg/sandbox"
	"github.com/rhuss/sandboxagent/pkg/sandbox/backend"
	"github.com/rhuss/sandboxagent/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sandbox-mcp failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		return err
	}
	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	exec, err := backend.New(cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("creating sandbox backend: %w", err)
	}
	defer sandbox.Close(exec)

	handler, err := newHandler(cfg, exec)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sandbox-mcp starting",
			"port", cfg.Server.Port,
			"sandbox", exec.Name(),
			"networking", cfg.Server.AllowNetworking,
			"auth", cfg.Server.Auth.Type,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newHandler assembles the HTTP surface. Only /mcp sits behind auth.
func newHandler(cfg *config.Config, exec sandbox.Executor) (http.Handler, error) {
	server := mcpserver.New(exec, mcpserver.Config{AllowNetworking: cfg.Server.AllowNetworking})

	bypass := []string{"/healthz"}
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.Handler(server))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}

	authn, err := newAuthMiddleware(cfg.Server.Auth, bypass)
	if err != nil {
		return nil, err
	}
	stack := transport.Chain(
		transport.RequestID(),
		transport.Recovery(),
		transport.Logging(nil),
		transport.Metrics(),
		authn,
	)
	return stack(mux), nil
}
