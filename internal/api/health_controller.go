package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/database"
	"gorm.io/gorm"
)

// Pinger 外部依赖连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController 健康检查控制器
type HealthController struct {
	db  *gorm.DB
	bot Pinger
}

// NewHealthController 创建健康检查控制器
// db 和 bot 均可为 nil
func NewHealthController(db *gorm.DB, bot Pinger) *HealthController {
	return &HealthController{
		db:  db,
		bot: bot,
	}
}

// Check 健康检查
func (h *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if h.db != nil {
		if err := database.CheckHealth(ctx, h.db); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// 检查 Telegram Bot API
	// Telegram 不可用只影响通知,服务降级但不判定为不健康
	if h.bot != nil {
		if err := h.bot.Ping(ctx); err != nil {
			if status == "healthy" {
				status = "degraded"
			}
			checks["telegram"] = "unreachable: " + err.Error()
		} else {
			checks["telegram"] = "healthy"
		}
	} else {
		checks["telegram"] = "not configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
