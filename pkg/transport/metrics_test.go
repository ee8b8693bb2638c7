package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/rhuss/sandboxagent/pkg/observability"
)

func TestMetricsRecordsStatusClass(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		handler http.HandlerFunc
		class   string
	}{
		{"explicit status", "POST", "/mcp", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) }, "4xx"},
		{"implicit 200", "GET", "/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok\n")) }, "2xx"},
		{"nothing written", "GET", "/metrics", func(w http.ResponseWriter, r *http.Request) {}, "2xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := observability.HTTPRequestsTotal.WithLabelValues(tt.method, tt.path, tt.class)
			before := testutil.ToFloat64(counter)
			beforeObs := sampleCount(t, observability.HTTPRequestDuration, tt.method, tt.path)

			Metrics()(tt.handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			if delta := testutil.ToFloat64(counter) - before; delta != 1 {
				t.Errorf("%s counter delta = %v, want 1", tt.class, delta)
			}
			if delta := sampleCount(t, observability.HTTPRequestDuration, tt.method, tt.path) - beforeObs; delta != 1 {
				t.Errorf("duration samples delta = %d, want 1", delta)
			}
		})
	}
}

func TestMetricsStreamingGauge(t *testing.T) {
	baseline := testutil.ToFloat64(observability.StreamingConnections)

	var during float64
	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(observability.StreamingConnections)
	}))

	req := httptest.NewRequest("GET", "/mcp", nil)
	req.Header.Set("Accept", "text/event-stream")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if during != baseline+1 {
		t.Errorf("gauge during stream = %v, want %v", during, baseline+1)
	}
	if after := testutil.ToFloat64(observability.StreamingConnections); after != baseline {
		t.Errorf("gauge after stream = %v, want %v", after, baseline)
	}
}

func TestStatusRecorderFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	(&statusRecorder{ResponseWriter: rec}).Flush()
	if !rec.Flushed {
		t.Error("underlying writer not flushed")
	}
}

func sampleCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	m := &dto.Metric{}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
