package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxFieldLength 用户填写的元数据最大长度(按字符计)
const MaxFieldLength = 200

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// CleanField 清理用户填写的单行文本
// 去除首尾空白和控制字符,超长时截断
func CleanField(input string, maxLen int) string {
	// 1. 移除控制字符,换行会破坏消息摘要的格式
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())

	// 2. 截断
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

// ValidID 检查记录 ID 格式,只允许字母、数字和连字符
func ValidID(id string) bool {
	return id != "" && len(id) <= 64 && idPattern.MatchString(id)
}
