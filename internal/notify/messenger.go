package notify

import "context"

// Control 消息上的交互按钮
type Control struct {
	Text string
	Data string
}

// MessageRef 已发送消息的引用
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Callback 管理员点击按钮后收到的回调事件
type Callback struct {
	ID       string
	Data     string
	Message  MessageRef
	Language string
}

// Messenger 管理员消息通道
// 任何提供以下能力的消息系统都可以替换 Telegram
type Messenger interface {
	// SendPhoto 发送图片、说明文字和可选的交互按钮
	SendPhoto(ctx context.Context, chatID int64, photoPath, caption string, controls []Control) (MessageRef, error)
	// ClearControls 移除已发送消息上的交互按钮
	ClearControls(ctx context.Context, ref MessageRef) error
	// SendText 发送纯文本消息
	SendText(ctx context.Context, chatID int64, text string) error
	// AnswerCallback 应答回调,text 为空时仅消除客户端加载状态
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
