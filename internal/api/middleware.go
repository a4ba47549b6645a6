package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"backoffice-alerts/internal/logging"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		if path == "/health" || path == "/metrics" {
			log.Debugf("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
			return
		}
		log.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}
