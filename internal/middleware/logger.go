package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/logger"
)

// RequestLogger logs one structured line per request with method, path,
// status, latency and the request id set by RequestID.
//
// Behavior:
//   - Captures start time before request handling.
//   - After the request is processed, logs method, path, status, latency_ms and request_id.
//   - 5xx responses log at error level and 4xx at warn; everything else at info.
//
// Returns:
//   - gin.HandlerFunc: A middleware function for use in Gin router.
//
// Example log output:
//
//	{"level":"info","component":"http","request_id":"...","method":"GET","path":"/api/v1/screen","status":200,"latency_ms":812}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		rid, _ := c.Get(RequestIDKey)

		log := logger.Component("http")
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
