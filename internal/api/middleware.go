package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request ID in and out of the service.
const RequestIDHeader = "X-Request-ID"

type ctxKey string

const requestIDKey = ctxKey("requestId")

// RequestIDFromContext returns the request ID stored by the middleware.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// requestID reuses the caller's request ID or generates one, and attaches
// it to the request context and the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey, id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// accessLog writes one entry per request, and the handler errors if any.
func accessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := RequestIDFromContext(c.Request.Context())
		entry := logger.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency":    time.Since(start).String(),
			"request_id": rid,
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

// corsMiddleware allows the configured origins. "*" allows any origin; an
// empty list allows none.
func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	var allowed []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			corsConfig.AllowAllOrigins = true
			allowed = nil
			break
		}
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	switch {
	case corsConfig.AllowAllOrigins:
	case len(allowed) > 0:
		corsConfig.AllowOrigins = allowed
	default:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", RequestIDHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", RequestIDHeader)
	return cors.New(corsConfig)
}
