package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger returns a middleware that logs failed requests using logrus
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Streams and scrapes are long-lived or noisy
		if strings.HasSuffix(path, "/stream") || path == "/metrics" || path == "/health" {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < 400 {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":    statusCode,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
			"method":    c.Request.Method,
			"path":      path,
		}
		if orgID, ok := c.Get("organization_id"); ok {
			fields["organization_id"] = orgID
		}
		entry := logrus.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		if statusCode >= 500 {
			entry.Error("Server error")
		} else {
			entry.Warn("Client error")
		}
	}
}
