package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
)

const requestIDKey = "request_id"

// RequestID assigns a request identifier, honoring one supplied by the
// caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// RequestIDFrom returns the request identifier, or "" outside the chain.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logging emits one structured line per request.
func Logging(logger logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
			logging.String("request_id", RequestIDFrom(c)),
		}
		if org := OrgFrom(c); org != "" {
			fields = append(fields, logging.String("org_id", string(org)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			log.Error("request", fields...)
		} else {
			log.Info("request", fields...)
		}
	}
}

// Recovery converts panics into 500 responses without killing the worker.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					logging.Any("panic", r),
					logging.String("path", c.Request.URL.Path),
					logging.String("request_id", RequestIDFrom(c)),
				)
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}
