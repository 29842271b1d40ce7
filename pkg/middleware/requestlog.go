package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog emits one structured log line per request after the handler
// chain completes.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		}

		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
			zap.L().Warn("http.request", fields...)
			return
		}

		zap.L().Info("http.request", fields...)
	}
}
