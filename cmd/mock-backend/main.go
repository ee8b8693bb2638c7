// Command mock-backend runs a deterministic Chat Completions server so
// that sandboxagent can be exercised without a hosted model. Point the
// agent at it with
//
//	SANDBOXAGENT_PROVIDER=openai-compatible SANDBOXAGENT_BASE_URL=http://localhost:9090
//
// The mock calls the code execution tool once with the first fenced code
// block of the prompt (or a default snippet) and then answers with the
// tool output.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	addr := ":" + cmp.Or(os.Getenv("MOCK_PORT"), "9090")
	if err := serve(addr); err != nil {
		slog.Error("mock backend failed", "error", err)
		os.Exit(1)
	}
}

// serve runs the mock on addr until SIGINT or SIGTERM.
func serve(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: newMux(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("mock backend listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok\n")
	})
	return mux
}
