package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	ContextLogger   = "logger"
)

// RequestLogger tags each request with an ID (and the trace ID when a span is active),
// exposes a request-scoped logger and logs completion with latency and status.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		log := base.With(zap.String("request_id", requestID))
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			log = log.With(zap.String("trace_id", sc.TraceID().String()))
		}
		c.Set(ContextLogger, log)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", c.ClientIP()),
		}
		if id := c.GetInt64(ContextUserID); id > 0 {
			fields = append(fields, zap.Int64("user_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Logger returns the request-scoped logger, falling back to fallback.
func Logger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(ContextLogger); ok {
		if log, ok := v.(*zap.Logger); ok {
			return log
		}
	}
	return fallback
}
