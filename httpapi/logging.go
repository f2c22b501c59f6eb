package httpapi

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/internal/logx"
)

// requestLogging logs one line per request with the session fields that the
// handlers attached to the gin context.
func requestLogging(base pslog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := base
		if logger == nil {
			logger = pslog.Ctx(c.Request.Context())
		}
		c.Request = c.Request.WithContext(pslog.ContextWithLogger(c.Request.Context(), logger))
		c.Next()

		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		log := logger.With("remote", c.ClientIP())
		if entry, ok := c.Get(sessionContextKey); ok {
			if sess, ok := entry.(session); ok {
				log = logx.WithVariant(log.With("session", string(sess.sessionID), "http_session", sess.id), sess.variant)
			}
		}
		status := c.Writer.Status()
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		fields := []any{"method", c.Request.Method, "path", path, "status", status, "bytes", size, "duration_ms", time.Since(start).Milliseconds()}
		if status >= 500 {
			log.Warn("http request", fields...)
		} else {
			log.Info("http request", fields...)
		}
		log.Debug("http request details", "ua", c.Request.UserAgent())
	}
}

func recovery(base pslog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger := base
		if logger == nil {
			logger = pslog.Ctx(c.Request.Context())
		}
		logger.Error("http handler panic", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(500, gin.H{"error": "internal error"})
	})
}
