package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"modelgw/internal/generation"
)

const metricsNamespace = "modelgw"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"path"},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Total backpressure rejections (429)",
		},
		[]string{"reason"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "completions_total",
			Help:      "Completed generations by finish reason",
		},
		[]string{"model", "finish_reason"},
	)

	promptTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens reported by the backend",
		},
		[]string{"model"},
	)

	generatedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "generated_tokens_total",
			Help:      "Generated tokens reported by the backend",
		},
		[]string{"model"},
	)

	backendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "backend_errors_total",
			Help:      "Generations that ended with a backend error",
		},
		[]string{"model", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal, httpRequestDuration, httpInflight, backpressureTotal,
		generationsTotal, promptTokensTotal, generatedTokensTotal, backendErrorsTotal,
	)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		httpInflight.WithLabelValues(path).Inc()
		defer httpInflight.WithLabelValues(path).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := strconv.Itoa(sr.status)
		dur := time.Since(start).Seconds()
		// chi fills in the route pattern while routing
		final := routePatternOrPath(r)
		httpRequestsTotal.WithLabelValues(final, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(final, r.Method, statusLabel).Observe(dur)
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// IncrementBackpressure is called when returning 429 to the client
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

// observeGeneration records the merged outcome of one generation.
func observeGeneration(model string, r generation.Result) {
	finish := "none"
	if r.FinishReason != nil {
		finish = r.FinishReason.String()
	}
	generationsTotal.WithLabelValues(model, finish).Inc()
	if r.NumInputTokens != nil {
		promptTokensTotal.WithLabelValues(model).Add(float64(*r.NumInputTokens))
	}
	if r.NumGeneratedTokens != nil {
		generatedTokensTotal.WithLabelValues(model).Add(float64(*r.NumGeneratedTokens))
	}
	if r.Error != nil {
		typ := r.Error.Type
		if typ == "" {
			typ = "unknown"
		}
		backendErrorsTotal.WithLabelValues(model, typ).Inc()
	}
}
