package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
)

const languageKey = "language"

// I18nMiddleware 国际化中间件
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := "en" // 默认语言

		// 方式 1: 从查询参数获取语言
		if queryLang := c.Query("lang"); queryLang != "" {
			lang = i18n.Normalize(queryLang)
		} else if headerLang := c.GetHeader("Accept-Language"); headerLang != "" {
			// 方式 2: 从 Accept-Language 头获取语言
			lang = i18n.ParseAcceptLanguage(headerLang)
		}

		c.Set(languageKey, lang)

		c.Next()
	}
}

// GetLanguage 从上下文获取语言
func GetLanguage(c *gin.Context) string {
	if lang := c.GetString(languageKey); lang != "" {
		return lang
	}
	return "en"
}

// T 按请求语言翻译消息
func T(c *gin.Context, key string, args ...interface{}) string {
	return i18n.T(GetLanguage(c), key, args...)
}
