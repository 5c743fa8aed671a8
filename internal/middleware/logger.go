package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/metrics"
)

// unmatchedRoute labels requests that did not hit a registered route, so
// that arbitrary paths cannot blow up metric cardinality
const unmatchedRoute = "unmatched"

// Logger logs every request once it completes and records its latency.
// It expects RequestID to run first.
func Logger(base logger.Logger, recorder metrics.Recorder) gin.HandlerFunc {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithLogger(c.Request.Context(), base)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		recorder.ObserveRequest(route, status, latency)

		// Auth may have enriched the context after this middleware ran
		log := base.WithContext(c.Request.Context())
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Duration("latency", latency),
			logger.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
