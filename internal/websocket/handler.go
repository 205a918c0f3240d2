package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/jmgc95/gcash-buy-backend/internal/service"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 身份由 id + token 校验,跨域由 CORS 配置控制
		return true
	},
}

// StatusSource 校验订阅凭证并返回当前状态
type StatusSource interface {
	Watch(ctx context.Context, id, token string) (*service.StatusView, error)
}

// StatusHandler 记录状态订阅处理器
// GET /ws/status/:id?token=<token>
func StatusHandler(hub *Hub, source StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 校验 id 与 token
		id := c.Param("id")
		view, err := source.Watch(c.Request.Context(), id, c.Query("token"))
		if errors.Is(err, service.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		// 2. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.WithError(err).Warn("failed to upgrade websocket connection")
			return
		}

		// 3. 创建客户端并写入当前状态
		client := NewClient(uuid.NewString(), view.ID, hub, conn)
		message, _ := json.Marshal(StatusMessage{ID: view.ID, Status: view.Status})
		client.Send <- message

		// 4. 注册客户端
		select {
		case hub.Register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		// 5. 启动 readPump 和 writePump
		go client.ReadPump()
		go client.WritePump()
	}
}
