package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bus-schedule/internal/service"
)

// unmatchedRoute labels requests no route matched so raw paths never become labels.
const unmatchedRoute = "unmatched"

// Metrics records method, route template, status and latency of every request.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
