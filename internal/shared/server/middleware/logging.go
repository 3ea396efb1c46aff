package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/shared/metrics"
	"s3drive-backend/internal/shared/telemetry"
)

// Logging emits a structured log line and records HTTP metrics per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()

		metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), latency)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"bytes_out":   c.Writer.Size(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if fileID := c.GetString("fileId"); fileID != "" {
			fields["file_id"] = fileID
		}
		telemetry.Info("request.complete", fields)
	}
}
