// Package metrics provides Prometheus instrumentation for the scoring engine.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentra",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentra",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// FraudPredictionsTotal counts fraud predictions by risk level.
	FraudPredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentra",
			Name:      "fraud_predictions_total",
			Help:      "Total fraud predictions by resulting risk level.",
		},
		[]string{"risk_level"},
	)

	// DeviceChangePatterns counts suspicious fingerprint pattern hits.
	DeviceChangePatterns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentra",
			Name:      "device_change_patterns_total",
			Help:      "Suspicious fingerprint pattern detections by pattern type.",
		},
		[]string{"pattern"},
	)

	// AssessmentsTotal counts merged assessments by recommended action.
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentra",
			Name:      "assessments_total",
			Help:      "Total merged risk assessments by recommended action.",
		},
		[]string{"action"},
	)

	// ScoringDuration observes engine computation time per operation.
	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentra",
			Name:      "scoring_duration_seconds",
			Help:      "Scoring computation time by operation.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"operation"},
	)

	// ActiveWebSocketClients tracks connected assessment-feed clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentra",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once; only the first call registers.
func Register() {
	registerOnce.Do(register)
}

func register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		FraudPredictionsTotal,
		DeviceChangePatterns,
		AssessmentsTotal,
		ScoringDuration,
		ActiveWebSocketClients,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware instruments every request with count and duration.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}

// TimeOperation records the duration of one engine operation.
func TimeOperation(operation string, start time.Time) {
	ScoringDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
