package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SubmissionsTotal outcome: passed, failed, exhausted
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Assessment submissions by outcome",
		},
		[]string{"outcome"},
	)

	GradingAnomalies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grading_anomalies_total",
			Help: "Questions graded incorrect because of a malformed key or answer",
		},
	)

	AggregationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_aggregation_failures_total",
			Help: "Progress cascades that failed after a submission was persisted",
		},
	)

	EnrollmentCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrollment_completions_total",
			Help: "Enrollments that transitioned to completed",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SubmissionsTotal)
		prometheus.MustRegister(GradingAnomalies)
		prometheus.MustRegister(AggregationFailures)
		prometheus.MustRegister(EnrollmentCompletions)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
