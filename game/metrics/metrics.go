// Package metrics exposes gameplay and HTTP measurements to Prometheus.
//
// Metrics:
//   - chipslide_moves_total{result} counter, result is accepted or rejected
//   - chipslide_puzzles_solved_total{pack} counter
//   - chipslide_solve_moves histogram of move counts at solve time
//   - chipslide_sessions_active gauge
//   - chipslide_levels_loaded_total counter of levels decoded from packs
//   - chipslide_http_request_duration_seconds{method,path,status} histogram
//   - chipslide_http_requests_inflight gauge
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chipslide"

// Metrics holds every collector on a private registry
type Metrics struct {
	registry *prometheus.Registry

	moves        *prometheus.CounterVec
	solved       *prometheus.CounterVec
	solveMoves   prometheus.Histogram
	sessions     prometheus.Gauge
	levelsLoaded prometheus.Counter

	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Move requests by outcome.",
		}, []string{"result"}),
		solved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "puzzles_solved_total",
			Help:      "Solved puzzles by level pack.",
		}, []string{"pack"}),
		solveMoves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_moves",
			Help:      "Move count at the moment a puzzle was solved.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		levelsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "levels_loaded_total",
			Help:      "Levels decoded from level packs.",
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.moves, m.solved, m.solveMoves, m.sessions, m.levelsLoaded,
		m.reqDuration, m.reqInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// MoveAttempted counts one move request
func (m *Metrics) MoveAttempted(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.moves.WithLabelValues(result).Inc()
}

// PuzzleSolved counts a solve and records its move count
func (m *Metrics) PuzzleSolved(packID string, moves int) {
	m.solved.WithLabelValues(packID).Inc()
	m.solveMoves.Observe(float64(moves))
}

// SessionsActive sets the active session gauge
func (m *Metrics) SessionsActive(n int) {
	m.sessions.Set(float64(n))
}

// LevelsLoaded counts the levels of a freshly decoded pack. Its signature
// matches the level manager's loaded listener.
func (m *Metrics) LevelsLoaded(names []string) {
	m.levelsLoaded.Add(float64(len(names)))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request duration per route template. Use it with
// mux.Router.Use so the route is known when the request completes.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.reqInflight.Inc()
		defer m.reqInflight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.reqDuration.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer so WebSocket upgrades
// still work behind the middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
