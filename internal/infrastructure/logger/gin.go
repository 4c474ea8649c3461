package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// GinLoggerKey is the gin context key holding the request scoped logger
	GinLoggerKey = "logger"

	ginRequestIDKey = "request_id"
)

// GinMiddleware logs one entry per HTTP request and hands a request scoped
// logger to handlers. Requests to skipPaths are passed through unlogged.
func GinMiddleware(base *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()

		ctx, reqLogger := WithRequestID(c.Request.Context(), base, c.GetString(ginRequestIDKey))
		reqLogger = reqLogger.With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		if traceID := GetTraceID(ctx); traceID != "" {
			reqLogger = reqLogger.With(zap.String("trace_id", traceID))
		}
		c.Request = c.Request.WithContext(ctx)
		SetGinLogger(c, reqLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		// handlers may have replaced the logger, e.g. with the JWT subject
		log := GetGinLogger(c)
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 and logs it with the request
// scoped logger when one is set, else with base.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log := base
			if l, ok := c.Get(GinLoggerKey); ok {
				if reqLogger, ok := l.(*zap.Logger); ok {
					log = reqLogger
				}
			} else {
				log = log.With(
					zap.String("request_id", c.GetString(ginRequestIDKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
			}
			log.Error("handler panicked", zap.Any("panic", rec), zap.Stack("stacktrace"))
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// SetGinLogger makes l the request scoped logger for both the gin context and
// the request context.
func SetGinLogger(c *gin.Context, l *zap.Logger) {
	c.Set(GinLoggerKey, l)
	c.Request = c.Request.WithContext(WithContext(c.Request.Context(), l))
}

// GetGinLogger returns the request scoped logger, falling back to the one on
// the request context and then to a no-op logger.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(GinLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return FromContext(c.Request.Context())
}
