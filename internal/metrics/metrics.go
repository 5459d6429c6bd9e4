// Package metrics exposes Prometheus instrumentation for the catalog
// server: per-route HTTP timings plus counters for the search and index
// subsystems.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aslcat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aslcat",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SearchesTotal counts executed search queries, including ones that
	// returned no hits.
	SearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aslcat",
			Name:      "searches_total",
			Help:      "Total number of search queries executed",
		},
	)

	// SearchErrorsTotal counts searches rejected by the FTS engine
	// (malformed raw queries, mostly).
	SearchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aslcat",
			Name:      "search_errors_total",
			Help:      "Total number of search queries rejected as invalid",
		},
	)

	// IndexOpsTotal counts index writes by operation (upsert, delete,
	// rebuild).
	IndexOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aslcat",
			Name:      "index_operations_total",
			Help:      "Total number of search index write operations",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchErrorsTotal)
	prometheus.MustRegister(IndexOpsTotal)
}

// Middleware records duration and count for every request, labelled by the
// chi route pattern to keep cardinality bounded.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unknown"
			}
			status := strconv.Itoa(ww.status)

			httpRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
