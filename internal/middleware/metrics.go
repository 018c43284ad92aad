package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-insights-backend/internal/monitoring"
)

// Metrics records request counts and latency per route template
func Metrics(m *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
