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

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal           *prometheus.CounterVec
	askConfidenceTotal *prometheus.CounterVec
	retrievalHitTotal  *prometheus.CounterVec
	noContextTotal     *prometheus.CounterVec
	rerankSkippedTotal *prometheus.CounterVec
	survivingPassages  *prometheus.HistogramVec
	askDuration        *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deen",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "ask_total",
			Help:      "Total answered questions by query language and backend.",
		},
		[]string{"service", "language", "backend"},
	)
	askConfidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "ask_confidence_total",
			Help:      "Total answered questions by confidence label.",
		},
		[]string{"service", "confidence"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total questions with at least one surviving passage.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total questions short-circuited with the insufficient-information answer.",
		},
		[]string{"service"},
	)
	rerankSkippedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "rerank_skipped_total",
			Help:      "Total questions answered without cross-encoder reranking.",
		},
		[]string{"service"},
	)
	survivingPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "surviving_passages",
			Help:      "Distribution of passages surviving relevance filtering.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 25},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deen",
			Subsystem: "rag",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askConfidenceTotal,
		retrievalHitTotal,
		noContextTotal,
		rerankSkippedTotal,
		survivingPassages,
		askDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		askTotal:           askTotal,
		askConfidenceTotal: askConfidenceTotal,
		retrievalHitTotal:  retrievalHitTotal,
		noContextTotal:     noContextTotal,
		rerankSkippedTotal: rerankSkippedTotal,
		survivingPassages:  survivingPassages,
		askDuration:        askDuration,
	}
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordAsk records one completed answering request.
func (m *HTTPServerMetrics) RecordAsk(service, language, backend, confidence string, sourceCount int, reranked bool, duration time.Duration) {
	m.askTotal.WithLabelValues(service, language, backend).Inc()
	m.askConfidenceTotal.WithLabelValues(service, confidence).Inc()
	m.survivingPassages.WithLabelValues(service).Observe(float64(sourceCount))
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
	} else {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
	if !reranked {
		m.rerankSkippedTotal.WithLabelValues(service).Inc()
	}
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

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
