package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	assessmentsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdiabetes_assessments_total",
			Help: "Total number of risk assessments computed",
		},
		[]string{"model", "risk_level", "source"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdiabetes_extractions_total",
			Help: "Total number of transcript extractions by outcome",
		},
		[]string{"outcome"},
	)

	extractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qdiabetes_extraction_duration_seconds",
			Help:    "Upstream extraction call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	extractionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdiabetes_extraction_cache_lookups_total",
			Help: "Extraction cache lookups by result",
		},
		[]string{"result"},
	)

	speechTokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdiabetes_speech_tokens_total",
			Help: "Temporary speech keys requested by outcome",
		},
		[]string{"outcome"},
	)

	hisPrefills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qdiabetes_his_prefills_total",
			Help: "HIS prefill lookups by outcome",
		},
		[]string{"outcome"},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels requests by their chi route template so IDs do not
// become label values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// --- Business metric helpers ---

// RecordAssessment records a computed risk score
func RecordAssessment(model, riskLevel, source string) {
	assessmentsComputed.WithLabelValues(model, riskLevel, source).Inc()
}

// RecordExtraction records an upstream extraction call
func RecordExtraction(outcome string, duration time.Duration) {
	extractionsTotal.WithLabelValues(outcome).Inc()
	extractionDuration.Observe(duration.Seconds())
}

// RecordExtractionCache records a cache lookup
func RecordExtractionCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	extractionCacheLookups.WithLabelValues(result).Inc()
}

// RecordSpeechToken records a temporary key request
func RecordSpeechToken(outcome string) {
	speechTokensIssued.WithLabelValues(outcome).Inc()
}

// RecordHISPrefill records a prefill lookup
func RecordHISPrefill(outcome string) {
	hisPrefills.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
