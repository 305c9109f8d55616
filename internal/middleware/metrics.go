package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		metrics.Get().IncrementRequests(statusCode < 400, latency)

		// Usa o template da rota para não explodir a cardinalidade
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.Get().TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// AuditMiddleware registra em audit as operações sob os prefixos informados
func AuditMiddleware(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodGet {
			return
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				logger.AuditRequest(
					c.Request.Context(),
					c.Request.Method,
					path,
					c.Writer.Status(),
					time.Since(start).Milliseconds(),
					c.ClientIP(),
				)
				return
			}
		}
	}
}
