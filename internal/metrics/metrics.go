package metrics

import (
	"net/http"
	"strconv"
	"time"

	"courier/internal/domain/notification"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	deliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_delivery_attempts_total",
			Help: "Provider send attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	notificationsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_notifications_total",
			Help: "Notifications that reached a terminal status",
		},
		[]string{"channel", "status"},
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_notification_duration_seconds",
			Help:    "Time from submission to terminal status, backoff included",
			Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Middleware records request count and latency. The route template is used
// as the path label so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Recorder feeds pipeline progress into the delivery collectors.
type Recorder struct{}

var _ notification.Recorder = Recorder{}

// AttemptFinished counts one provider send.
func (Recorder) AttemptFinished(channel notification.Channel, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	deliveryAttempts.WithLabelValues(string(channel), result).Inc()
}

// NotificationFinished counts a terminal transition and observes its latency.
func (Recorder) NotificationFinished(channel notification.Channel, status notification.NotificationStatus, elapsed time.Duration) {
	notificationsFinished.WithLabelValues(string(channel), string(status)).Inc()
	notificationDuration.WithLabelValues(string(channel)).Observe(elapsed.Seconds())
}
