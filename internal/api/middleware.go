package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
)

// Logger emits one zerolog event per request. The event is written from a
// defer so requests that abort the connection are logged too.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		completed := false

		defer func() {
			logger := config.GetLogger()
			status := c.Writer.Status()
			event := logger.Info()
			switch {
			case status >= 500 || !completed:
				event = logger.Error()
			case status >= 400:
				event = logger.Warn()
			}
			if err := c.Errors.Last(); err != nil {
				event = event.Err(err.Err)
			}
			event.
				Str("method", c.Request.Method).
				Str("path", path).
				Int("status", status).
				Bool("aborted", !completed).
				Dur("latency", time.Since(start)).
				Str("client_ip", c.ClientIP()).
				Int("size", c.Writer.Size()).
				Msg("HTTP request")
		}()

		c.Next()
		completed = true
	}
}

// CORS allows any origin, including the Range header for players
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Range")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Metrics records request counts and latencies by route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request.Method
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		}()
		c.Next()
	}
}

// Sentry reports server errors when a Sentry client is configured
func Sentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if c.Writer.Status() < 500 || sentry.CurrentHub().Client() == nil {
				return
			}
			if err := c.Errors.Last(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(c.Request)
				hub.Scope().SetTag("route", c.FullPath())
				hub.CaptureException(err.Err)
			}
		}()
		c.Next()
	}
}

// Recovery turns panics into the generic 500 body. http.ErrAbortHandler is
// re-raised so the server drops the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			logger := config.GetLogger()
			logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
			if sentry.CurrentHub().Client() != nil {
				sentry.CurrentHub().Recover(recovered)
			}

			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
