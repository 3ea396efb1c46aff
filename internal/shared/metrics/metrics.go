package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s3drive_uploads_total",
			Help: "Uploads handled by the file coordinator",
		},
		[]string{"result"},
	)

	uploadedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "s3drive_uploaded_bytes_total",
			Help: "Bytes accepted by successful uploads",
		},
	)

	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s3drive_deletes_total",
			Help: "Deletes handled by the file coordinator",
		},
		[]string{"result"},
	)

	presignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "s3drive_presign_duration_seconds",
			Help:    "Time spent generating one presigned access URL",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "s3drive_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "s3drive_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveUpload records the outcome of an upload.
func ObserveUpload(result string, sizeBytes int64) {
	uploadsTotal.WithLabelValues(result).Inc()
	if result == ResultOK && sizeBytes > 0 {
		uploadedBytesTotal.Add(float64(sizeBytes))
	}
}

// ObserveDelete records the outcome of a delete.
func ObserveDelete(result string) {
	deletesTotal.WithLabelValues(result).Inc()
}

// ObservePresign records how long a single presign call took.
func ObservePresign(d time.Duration) {
	presignDuration.Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the gin route template,
// so path parameters never become label values.
func ObserveHTTP(method, route, status string, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
