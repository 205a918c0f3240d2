package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
)

// apiPrefixes 这些前缀下未匹配的路由返回 JSON 404,而不是前端页面
var apiPrefixes = []string{"/api/", "/download/", "/ws/", "/bot"}

// SPAHandler 静态文件与单页应用回退
// 请求的文件存在时直接返回,否则返回 index.html
func SPAHandler(publicDir string) gin.HandlerFunc {
	index := filepath.Join(publicDir, "index.html")

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) || isAPIPath(path) {
			Error(c, http.StatusNotFound, T(c, i18n.KeyRouteNotFound), "")
			return
		}

		// 1. 静态文件
		file := filepath.Join(publicDir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}

		// 2. 回退到 index.html
		if _, err := os.Stat(index); err != nil {
			Error(c, http.StatusNotFound, T(c, i18n.KeyRouteNotFound), "")
			return
		}
		c.File(index)
	}
}

func isAPIPath(path string) bool {
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
