// Package observability defines the Prometheus metrics recorded by the
// agent runner, the tool layer, the sandbox adapter and the HTTP stack of
// the MCP sandbox server. All collectors register with the default
// registry on import.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets are histogram buckets for model turns, 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// SandboxBuckets are histogram buckets for remote code execution. Cold
// starts of a sandbox routinely take seconds.
var SandboxBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

var (
	// HTTPRequestsTotal counts HTTP requests served by the MCP endpoint.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxagent_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: SandboxBuckets,
		},
		[]string{"method", "path"},
	)

	// StreamingConnections tracks open SSE streams on the MCP endpoint.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sandboxagent_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// AuthRejectedTotal counts MCP requests refused before reaching the
	// sandbox, by reason ("unauthenticated", "rate_limited").
	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_auth_rejected_total",
			Help: "Requests rejected by authentication or rate limiting",
		},
		[]string{"reason"},
	)

	// ProviderRequestsTotal counts requests sent to the reasoning backend.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records reasoning backend latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxagent_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolExecutionsTotal counts tool calls made by agents, by outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// SandboxExecutionsTotal counts code executions by backend, language and
	// outcome ("success" for exit 0, "failure" for non-zero, "error" for
	// transport failures).
	SandboxExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_sandbox_executions_total",
			Help: "Sandbox code executions",
		},
		[]string{"backend", "language", "outcome"},
	)

	// SandboxDuration records the round trip of one code execution.
	SandboxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxagent_sandbox_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: SandboxBuckets,
		},
		[]string{"backend", "language"},
	)

	// AgentRunsTotal counts agent runs by agent name and final status.
	AgentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandboxagent_agent_runs_total",
			Help: "Agent runs",
		},
		[]string{"agent", "status"},
	)

	// AgentTurns records how many model turns a run needed.
	AgentTurns = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandboxagent_agent_turns",
			Help:    "Model turns per agent run",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"agent"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StreamingConnections,
		AuthRejectedTotal,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ToolExecutionsTotal,
		SandboxExecutionsTotal,
		SandboxDuration,
		AgentRunsTotal,
		AgentTurns,
	)
}
