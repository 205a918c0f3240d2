package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
)

// ErrorHandlerMiddleware 错误处理中间件
// 将 handler 通过 c.Error 记录的错误转换为错误响应,已写出响应时不再处理
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		// 内部错误不向客户端暴露细节
		Error(c, http.StatusInternalServerError, i18n.T(GetLanguage(c), i18n.KeyInternalError), "")
	}
}
