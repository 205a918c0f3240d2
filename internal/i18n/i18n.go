package i18n

import (
	"fmt"
	"strings"
	"sync"
)

// Manager 国际化管理器
type Manager struct {
	mu       sync.RWMutex
	messages map[string]map[string]string // lang -> key -> message
}

// 消息 key
const (
	KeyNoFile           = "upload.no_file"
	KeyAccessDenied     = "download.access_denied"
	KeyArtifactMissing  = "download.artifact_missing"
	KeyCallbackInvalid  = "callback.invalid"
	KeyCallbackFailed   = "callback.failed"
	KeyCallbackDecided  = "callback.already_decided"
	KeyRouteNotFound    = "error.not_found"
	KeyInternalError    = "error.internal_error"
	KeyUploadFailed     = "upload.failed"
	KeyDecisionNotified = "callback.decided"
)

var defaultManager = NewManager()

func init() {
	defaultManager.LoadMessages("en", map[string]string{
		KeyNoFile:           "No file uploaded",
		KeyAccessDenied:     "Access denied / not approved",
		KeyArtifactMissing:  "File not found",
		KeyCallbackInvalid:  "Invalid ID",
		KeyCallbackFailed:   "Something went wrong, please try again",
		KeyCallbackDecided:  "Already %s",
		KeyRouteNotFound:    "Resource not found",
		KeyInternalError:    "Internal server error",
		KeyUploadFailed:     "Upload failed",
		KeyDecisionNotified: "Payment %s has been %s",
	})
	defaultManager.LoadMessages("zh", map[string]string{
		KeyNoFile:           "未上传文件",
		KeyAccessDenied:     "拒绝访问 / 尚未审核通过",
		KeyArtifactMissing:  "文件不存在",
		KeyCallbackInvalid:  "无效或已过期的 ID",
		KeyCallbackFailed:   "操作失败，请重试",
		KeyCallbackDecided:  "已处理: %s",
		KeyRouteNotFound:    "资源未找到",
		KeyInternalError:    "服务器内部错误",
		KeyUploadFailed:     "上传失败",
		KeyDecisionNotified: "付款 %s 已%s",
	})
	defaultManager.LoadMessages("fil", map[string]string{
		KeyNoFile:           "Walang na-upload na file",
		KeyAccessDenied:     "Bawal ang access / hindi pa aprubado",
		KeyArtifactMissing:  "Hindi nahanap ang file",
		KeyCallbackInvalid:  "Hindi wasto o expired na ID",
		KeyCallbackFailed:   "May nangyaring mali, pakisubukang muli",
		KeyCallbackDecided:  "Naproseso na: %s",
		KeyRouteNotFound:    "Hindi nahanap",
		KeyInternalError:    "Internal server error",
		KeyUploadFailed:     "Nabigo ang pag-upload",
		KeyDecisionNotified: "Ang bayad %s ay %s",
	})
}

// NewManager 创建国际化管理器
func NewManager() *Manager {
	return &Manager{
		messages: make(map[string]map[string]string),
	}
}

// LoadMessages 加载语言消息
func (m *Manager) LoadMessages(lang string, messages map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[lang] = messages
}

// Translate 翻译消息,args 非空时按 fmt 格式化
func (m *Manager) Translate(lang, key string, args ...interface{}) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	format, ok := m.lookup(lang, key)
	if !ok && lang != "en" {
		// 如果找不到翻译，尝试使用英文
		format, ok = m.lookup("en", key)
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func (m *Manager) lookup(lang, key string) (string, bool) {
	if messages, ok := m.messages[lang]; ok {
		if message, ok := messages[key]; ok {
			return message, true
		}
	}
	return "", false
}

// T 使用默认管理器翻译消息
func T(lang, key string, args ...interface{}) string {
	return defaultManager.Translate(lang, key, args...)
}

// Normalize 规范化语言代码
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case lang == "":
		return "en"
	case strings.HasPrefix(lang, "zh"):
		return "zh"
	case strings.HasPrefix(lang, "fil"), strings.HasPrefix(lang, "tl"):
		return "fil"
	case strings.HasPrefix(lang, "en"):
		return "en"
	}
	return lang
}

// ParseAcceptLanguage 解析 Accept-Language 头
func ParseAcceptLanguage(header string) string {
	// 解析 Accept-Language: zh-CN,zh;q=0.9,en;q=0.8
	parts := strings.Split(header, ",")
	if len(parts) > 0 {
		// 取第一个语言代码
		lang := strings.TrimSpace(parts[0])
		// 移除质量值（如果有）
		if idx := strings.Index(lang, ";"); idx != -1 {
			lang = lang[:idx]
		}
		return Normalize(lang)
	}
	return "en"
}
