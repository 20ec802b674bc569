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

	ragRequestsTotal      *prometheus.CounterVec
	ragRetrievalHitTotal  *prometheus.CounterVec
	ragNoContextTotal     *prometheus.CounterVec
	ragDegradedTotal      *prometheus.CounterVec
	ragRetrievedChunks    *prometheus.HistogramVec
	ragFusedCandidates    *prometheus.HistogramVec
	ragDuration           *prometheus.HistogramVec
	ingestAcceptedTotal   *prometheus.CounterVec
	ingestAcceptedBytes   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful RAG queries.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total RAG queries with at least one retrieved chunk.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total RAG queries without retrieved chunks.",
		},
		[]string{"service", "endpoint"},
	)
	ragDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "degraded_rewrite_total",
			Help:      "Total RAG queries served with the raw prompt after a failed rewrite.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per successful RAG query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	ragFusedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "fused_candidates",
			Help:      "Distribution of fused candidates before reranking.",
			Buckets:   []float64{0, 5, 10, 20, 40, 80, 150},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crag",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "RAG query execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ingestAcceptedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "ingest",
			Name:      "accepted_total",
			Help:      "Total documents accepted for processing.",
		},
		[]string{"service"},
	)
	ingestAcceptedBytes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crag",
			Subsystem: "ingest",
			Name:      "accepted_bytes_total",
			Help:      "Total bytes of document contents accepted for processing.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragDegradedTotal,
		ragRetrievedChunks,
		ragFusedCandidates,
		ragDuration,
		ingestAcceptedTotal,
		ingestAcceptedBytes,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		ragRequestsTotal:     ragRequestsTotal,
		ragRetrievalHitTotal: ragRetrievalHitTotal,
		ragNoContextTotal:    ragNoContextTotal,
		ragDegradedTotal:     ragDegradedTotal,
		ragRetrievedChunks:   ragRetrievedChunks,
		ragFusedCandidates:   ragFusedCandidates,
		ragDuration:          ragDuration,
		ingestAcceptedTotal:  ingestAcceptedTotal,
		ingestAcceptedBytes:  ingestAcceptedBytes,
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

func (m *HTTPServerMetrics) RecordRAGObservation(service, endpoint string, chunkCount, fusedCount int, degraded bool, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.ragRetrievedChunks.WithLabelValues(service, endpoint).Observe(float64(chunkCount))
	m.ragFusedCandidates.WithLabelValues(service, endpoint).Observe(float64(fusedCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if degraded {
		m.ragDegradedTotal.WithLabelValues(service, endpoint).Inc()
	}
	if chunkCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordIngestAccepted(service string, contentBytes int) {
	m.ingestAcceptedTotal.WithLabelValues(service).Inc()
	if contentBytes > 0 {
		m.ingestAcceptedBytes.WithLabelValues(service).Add(float64(contentBytes))
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
