package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/sandboxagent/pkg/observability"
)

// Metrics records request counts and latency per method and path, and
// tracks open SSE streams. Paths are used as labels verbatim, so mount it
// behind a mux with a fixed route set.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") == "text/event-stream" {
				observability.StreamingConnections.Inc()
				defer observability.StreamingConnections.Dec()
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			class := strconv.Itoa(rec.statusOrOK()/100) + "xx"
			observability.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, class).Inc()
			observability.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}
