package api

import (
	"crypto/subtle"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
	"github.com/jmgc95/gcash-buy-backend/internal/notify"
	"github.com/sirupsen/logrus"
)

const (
	// bot token 本身包含冒号,只能作为路由参数匹配后再比较
	webhookRoute      = "/bot:token"
	webhookPrefix     = "/bot"
	webhookRouteLabel = "/bot<token>"
)

// WebhookController Telegram webhook 控制器
type WebhookController struct {
	callbacks *notify.CallbackHandler
	botToken  string
	logger    logrus.FieldLogger
}

// NewWebhookController 创建 webhook 控制器
func NewWebhookController(callbacks *notify.CallbackHandler, botToken string, logger logrus.FieldLogger) *WebhookController {
	return &WebhookController{
		callbacks: callbacks,
		botToken:  botToken,
		logger:    logger,
	}
}

// Handle 接收 Telegram 推送的更新
// POST /bot<token>
// token 不匹配时按未知路由处理,其余情况始终返回 200,避免 Telegram 重复投递无法处理的更新
func (w *WebhookController) Handle(c *gin.Context) {
	c.Set(redactPathKey, true)
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(w.botToken)) != 1 {
		Error(c, http.StatusNotFound, T(c, i18n.KeyRouteNotFound), "")
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		w.logger.WithError(err).Warn("malformed telegram update")
		c.Status(http.StatusOK)
		return
	}

	cb, ok := notify.CallbackFromUpdate(&update)
	if !ok {
		// 只处理按钮回调
		c.Status(http.StatusOK)
		return
	}

	if err := w.callbacks.Handle(c.Request.Context(), cb); err != nil {
		w.logger.WithError(err).WithField("update_id", update.UpdateID).Error("failed to handle callback")
	}
	c.Status(http.StatusOK)
}
