package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/utils"
)

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// The query string may carry the checkout token; it is never logged.
		entry := utils.Info().WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  status,
			"latency": latency,
			"ip":      c.ClientIP(),
			"path":    path,
		})
		if sid, ok := c.Get(SessionIDKey); ok {
			entry = entry.WithField("session_id", sid)
		}
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request handled")
	}
}

// RecoveryMiddleware turns a panic into a 500 envelope and logs it.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.Error().WithField("path", c.Request.URL.Path).Errorf("panic recovered: %v", recovered)
		utils.RespondMessage(c, http.StatusInternalServerError, "Erro interno do servidor.", nil)
		c.Abort()
	})
}
