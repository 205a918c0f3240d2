package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware 请求日志中间件
func RequestLogMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// 使用路由模板作为指标标签,避免 id/token 造成高基数
		// webhook 路径包含 bot token,日志和指标中都替换为固定标签
		route := c.FullPath()
		path := c.Request.URL.Path
		if c.GetBool(redactPathKey) {
			route = webhookRouteLabel
			path = webhookRouteLabel
		} else if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(method, route, status, latency.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"request_id": GetRequestID(c),
			"method":     method,
			"path":       path,
			"status":     status,
			"latency":    latency.String(),
			"ip":         c.ClientIP(),
		})

		// 根据状态码选择日志级别
		if status >= 500 {
			entry.Error("API request")
		} else if status >= 400 {
			entry.Warn("API request")
		} else {
			entry.Info("API request")
		}
	}
}
