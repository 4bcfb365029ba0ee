package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "dashboard"

// Metrics is a private Prometheus registry with HTTP and recompute instruments.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	recomputeTotal    *prometheus.CounterVec
	recomputeDuration *prometheus.HistogramVec
	filteredRows      prometheus.Histogram
	emptySelections   *prometheus.CounterVec
	boundaryFetches   *prometheus.CounterVec
	chartRenders      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Number of in-flight HTTP requests.",
			},
		),
		recomputeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "aggregates",
				Name:      "recomputes_total",
				Help:      "Aggregate recomputations by requesting surface.",
			},
			[]string{"surface"},
		),
		recomputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "aggregates",
				Name:      "recompute_duration_seconds",
				Help:      "Time spent filtering and aggregating one selection.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"surface"},
		),
		filteredRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "aggregates",
				Name:      "filtered_rows",
				Help:      "Rows matched by the selected date range.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		emptySelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "aggregates",
				Name:      "empty_selections_total",
				Help:      "Selections that matched no rows.",
			},
			[]string{"surface"},
		),
		boundaryFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "geo",
				Name:      "boundary_fetches_total",
				Help:      "Country boundary fetch attempts by outcome.",
			},
			[]string{"status"},
		),
		chartRenders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "charts",
				Name:      "renders_total",
				Help:      "Chart renders by chart and outcome.",
			},
			[]string{"chart", "status"},
		),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.recomputeTotal,
		m.recomputeDuration,
		m.filteredRows,
		m.emptySelections,
		m.boundaryFetches,
		m.chartRenders,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	path = normalizePath(path)
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) InFlight(delta float64) {
	m.requestInFlight.Add(delta)
}

func (m *Metrics) RecordRecompute(surface string, rows int, empty bool, duration time.Duration) {
	if surface == "" {
		surface = "unknown"
	}
	m.recomputeTotal.WithLabelValues(surface).Inc()
	m.recomputeDuration.WithLabelValues(surface).Observe(duration.Seconds())
	m.filteredRows.Observe(float64(rows))
	if empty {
		m.emptySelections.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) RecordBoundaryFetch(status string) {
	m.boundaryFetches.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordChartRender(chart, status string) {
	m.chartRenders.WithLabelValues(chart, status).Inc()
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/charts/"):
		return "/charts/{name}"
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/sse/"), path == "/",
		path == "/health", path == "/metrics", path == "/admin/stats":
		return path
	default:
		return "other"
	}
}
