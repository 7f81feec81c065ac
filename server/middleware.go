package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wudi/pdfworks/observability"
)

const (
	HeaderRequestID = "X-Request-ID"
	// HeaderOwner carries the owner id resolved by the authenticating proxy
	// in front of this server.
	HeaderOwner = "X-Owner-ID"

	keyRequestID = "request_id"
	keyOwner     = "owner"
)

// RequestID tags every request with an id, reusing the caller's when given,
// and attaches a logger carrying it to the request context.
func RequestID(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(keyRequestID, requestID)

		ctx := observability.WithLogger(c.Request.Context(),
			logger.With(observability.String("request_id", requestID)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(keyRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Recovery turns a panic into a 500 response.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := GetRequestID(c)
				observability.FromContext(c.Request.Context(), logger).Error("panic recovered",
					observability.String("panic", panicString(r)),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success":    false,
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

func panicString(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	}
	return "non-error panic"
}

// RequestLogger writes one access log line per request, at warn for 4xx and
// error for 5xx.
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []observability.Field{
			observability.Int("status", status),
			observability.String("method", c.Request.Method),
			observability.String("path", path),
			observability.Int64("latency_ms", time.Since(start).Milliseconds()),
			observability.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, observability.String("query", query))
		}
		log := observability.FromContext(c.Request.Context(), logger)
		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Owner requires the owner header and makes it available to handlers.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(HeaderOwner)
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "owner id required",
			})
			return
		}
		c.Set(keyOwner, owner)
		c.Next()
	}
}

// GetOwner returns the owner set by Owner, or "".
func GetOwner(c *gin.Context) string {
	return c.GetString(keyOwner)
}
