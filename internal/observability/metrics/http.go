package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "complaints"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	complaintsCreatedTotal *prometheus.CounterVec
	classifierTotal        *prometheus.CounterVec
	classifierDuration     *prometheus.HistogramVec
	geoLookupTotal         *prometheus.CounterVec
	geoDispatchTotal       *prometheus.CounterVec
	geoQueueDepth          prometheus.Gauge
	breakerTransitions     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	complaintsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "created_total",
			Help:      "Total persisted complaints by sentiment and category.",
		},
		[]string{"service", "sentiment", "category"},
	)
	classifierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Category classifier calls by backend and outcome.",
		},
		[]string{"service", "backend", "outcome"},
	)
	classifierDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "Category classifier latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"service", "backend"},
	)
	geoLookupTotal, geoDispatchTotal, geoQueueDepth := newGeoCollectors(service)
	breakerTransitions := newBreakerCollector()

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		complaintsCreatedTotal,
		classifierTotal,
		classifierDuration,
		geoLookupTotal,
		geoDispatchTotal,
		geoQueueDepth,
		breakerTransitions,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		complaintsCreatedTotal: complaintsCreatedTotal,
		classifierTotal:        classifierTotal,
		classifierDuration:     classifierDuration,
		geoLookupTotal:         geoLookupTotal,
		geoDispatchTotal:       geoDispatchTotal,
		geoQueueDepth:          geoQueueDepth,
		breakerTransitions:     breakerTransitions,
	}
}

func newGeoCollectors(service string) (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Geolocation lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	dispatches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "dispatch_total",
			Help:      "Geolocation jobs handed to the background pool by outcome.",
		},
		[]string{"service", "outcome"},
	)
	depth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "queue_depth",
			Help:      "Geolocation jobs waiting in the background pool.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	return lookups, dispatches, depth
}

func newBreakerCollector() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state changes by operation and target state.",
		},
		[]string{"service", "operation", "state"},
	)
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses complaint ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/complaints/") && strings.HasSuffix(path, "/close"):
		return "/complaints/{id}/close"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordComplaintCreated(sentiment, category string) {
	m.complaintsCreatedTotal.WithLabelValues(m.service, sentiment, category).Inc()
}

func (m *HTTPServerMetrics) ObserveClassification(backend, outcome string, duration time.Duration) {
	if backend == "" {
		backend = "unknown"
	}
	m.classifierTotal.WithLabelValues(m.service, backend, outcome).Inc()
	m.classifierDuration.WithLabelValues(m.service, backend).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordGeoLookup(outcome string) {
	m.geoLookupTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordGeoDispatch(outcome string) {
	m.geoDispatchTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) SetGeoQueueDepth(depth int) {
	m.geoQueueDepth.Set(float64(depth))
}

func (m *HTTPServerMetrics) RecordBreakerTransition(operation, state string) {
	m.breakerTransitions.WithLabelValues(m.service, operation, state).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
