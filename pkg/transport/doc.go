// Package transport provides the HTTP middleware stack of the sandbox MCP
// server: request IDs (X-Request-ID), panic recovery, structured access
// logging via log/slog and Prometheus request metrics. Authentication lives
// in pkg/auth; Chain composes both.
package transport
