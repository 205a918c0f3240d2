package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/config"
	"github.com/jmgc95/gcash-buy-backend/internal/websocket"
	"github.com/sirupsen/logrus"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config   *config.Config
	Logger   logrus.FieldLogger
	Health   *HealthController
	Receipts *ReceiptController
	Webhook  *WebhookController
	Hub      *websocket.Hub
	Status   websocket.StatusSource
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware())
	}
	router.Use(RequestLogMiddleware(deps.Logger))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(I18nMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	if deps.Health != nil {
		router.GET("/health", deps.Health.Check)
	}

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 收据接口,同时挂载在 /api 下和根路径下
	for _, group := range []*gin.RouterGroup{router.Group("/api"), &router.RouterGroup} {
		group.POST("/upload", deps.Receipts.Upload)
		group.GET("/status", deps.Receipts.Status)
	}
	router.GET("/download/:id/:token", deps.Receipts.Download)

	// Telegram webhook
	if deps.Webhook != nil {
		router.POST(webhookRoute, deps.Webhook.Handle)
	}

	// WebSocket 状态推送
	if deps.Hub != nil && deps.Status != nil {
		router.GET("/ws/status/:id", websocket.StatusHandler(deps.Hub, deps.Status))
	}

	// 静态文件与前端页面回退,未匹配的 API 路由返回 JSON 404
	// 必须在所有业务路由注册之后设置
	router.NoRoute(SPAHandler(cfg.Storage.PublicDir))

	return router
}
