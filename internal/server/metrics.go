// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for chat metrics.
const (
	// outcomeOK marks turns that completed and produced a reply. Note that the
	// assistant folds model and tool failures into apologetic reply text, so
	// those turns still count as "ok" here.
	outcomeOK = "ok"
	// outcomeInvalid marks requests rejected before reaching the assistant.
	outcomeInvalid = "invalid"
	// outcomeError marks requests that failed to initialize a session.
	outcomeError = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed /api/chat requests, partitioned by
	// outcome: "ok", "invalid", or "error".
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the wall-clock duration of each assistant
	// turn, including the model round-trips and any tool call in between.
	chatDurationSeconds *prometheus.HistogramVec

	// chatInFlight is the number of /api/chat turns currently being processed.
	chatInFlight prometheus.Gauge

	// chatActiveSessions is the number of live conversation sessions.
	chatActiveSessions prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /api/chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopai",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of assistant turns, model calls and tool call included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		chatInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shopai",
			Subsystem: "chat",
			Name:      "in_flight",
			Help:      "Number of /api/chat turns currently being processed.",
		}),

		chatActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shopai",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions held by the server.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),
	}
}

// instrument wraps a handler to record per-endpoint HTTP request counts and
// latency under the given handler name.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(elapsed.Seconds())
	})
}
