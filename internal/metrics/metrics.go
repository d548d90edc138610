// v0
// internal/metrics/metrics.go

// Package metrics exposes Prometheus collectors for runs, sinks, the HTTP API
// and the circuit breakers. Every Metrics value owns its registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "footfall"

type Metrics struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	recordsTotal      *prometheus.CounterVec
	windowsTotal      prometheus.Counter
	runDuration       prometheus.Histogram
	sinkDuration      *prometheus.HistogramVec
	sinkErrors        *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	cbState           *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs by use case and outcome.",
		}, []string{"use_case", "status"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_generated_total",
			Help:      "Generated records by use case.",
		}, []string{"use_case"}),
		windowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_windows_total",
			Help:      "Anomaly windows placed across all runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Histogram of generation run durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		sinkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_duration_seconds",
			Help:      "Histogram of sink write durations by sink.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed sink writes by sink.",
		}, []string{"sink"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal,
		m.recordsTotal,
		m.windowsTotal,
		m.runDuration,
		m.sinkDuration,
		m.sinkErrors,
		m.httpRequestsTotal,
		m.httpDuration,
		m.cbState,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry; a nil Metrics falls back to the default one.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// RunFinished records one generation run.
func (m *Metrics) RunFinished(useCase string, records, windows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(useCase, status).Inc()
	m.runDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.recordsTotal.WithLabelValues(useCase).Add(float64(records))
	m.windowsTotal.Add(float64(windows))
}

// SinkWrite records the outcome of a single sink write.
func (m *Metrics) SinkWrite(sink string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sinkDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err != nil {
		m.sinkErrors.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SetCircuitBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(target).Set(state)
}
