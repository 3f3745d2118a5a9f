// Package metrics collects bot and HTTP metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tunebot"

// Recorder implements the pipeline's metrics sink and exposes the collected series.
type Recorder struct {
	registry *prometheus.Registry

	// Pipeline metrics
	requestsTotal   *prometheus.CounterVec
	outcomesTotal   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	deliveredBytes  prometheus.Counter
	sessionsCurrent prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{registry: reg}
	r.initPipelineMetrics(promauto.With(reg))
	r.initHTTPMetrics(promauto.With(reg))
	return r
}

func (r *Recorder) initPipelineMetrics(f promauto.Factory) {
	r.requestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of handled interactions",
		},
		[]string{"op"},
	)

	r.outcomesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Interaction outcomes by error kind",
		},
		[]string{"op", "kind"},
	)

	r.stageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of resolve, search, fetch and deliver calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	r.deliveredBytes = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_bytes_total",
			Help:      "Total size of delivered audio files",
		},
	)

	r.sessionsCurrent = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of stored candidate lists",
		},
	)
}

func (r *Recorder) initHTTPMetrics(f promauto.Factory) {
	r.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler exposing the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Request(op string) {
	r.requestsTotal.WithLabelValues(op).Inc()
}

func (r *Recorder) Outcome(op, kind string) {
	r.outcomesTotal.WithLabelValues(op, kind).Inc()
}

func (r *Recorder) Stage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) Delivered(bytes int64) {
	if bytes > 0 {
		r.deliveredBytes.Add(float64(bytes))
	}
}

// Sessions sets the stored candidate list gauge.
func (r *Recorder) Sessions(n int) {
	r.sessionsCurrent.Set(float64(n))
}

// HTTPRequest records one served HTTP request.
func (r *Recorder) HTTPRequest(method, path string, status int, d time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
