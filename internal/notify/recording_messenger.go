package notify

import (
	"context"
	"sync"
)

// MessengerCall 记录一次出站调用
type MessengerCall struct {
	Method     string // SendPhoto, ClearControls, SendText, AnswerCallback
	ChatID     int64
	MessageID  int
	PhotoPath  string
	Text       string
	Controls   []Control
	CallbackID string
}

// RecordingMessenger 记录所有出站调用的 Messenger 实现,用于测试
type RecordingMessenger struct {
	mu    sync.Mutex
	calls []MessengerCall

	// FailSend 为 true 时 SendPhoto 返回 SendErr
	FailSend bool
	SendErr  error

	nextMessageID int
}

// NewRecordingMessenger 创建记录型 Messenger
func NewRecordingMessenger() *RecordingMessenger {
	return &RecordingMessenger{}
}

func (r *RecordingMessenger) record(call MessengerCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// SendPhoto 记录图片发送
func (r *RecordingMessenger) SendPhoto(_ context.Context, chatID int64, photoPath, caption string, controls []Control) (MessageRef, error) {
	r.mu.Lock()
	fail, err := r.FailSend, r.SendErr
	r.nextMessageID++
	id := r.nextMessageID
	r.mu.Unlock()

	r.record(MessengerCall{Method: "SendPhoto", ChatID: chatID, MessageID: id, PhotoPath: photoPath, Text: caption, Controls: controls})
	if fail {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: chatID, MessageID: id}, nil
}

// ClearControls 记录按钮移除
func (r *RecordingMessenger) ClearControls(_ context.Context, ref MessageRef) error {
	r.record(MessengerCall{Method: "ClearControls", ChatID: ref.ChatID, MessageID: ref.MessageID})
	return nil
}

// SendText 记录文本发送
func (r *RecordingMessenger) SendText(_ context.Context, chatID int64, text string) error {
	r.record(MessengerCall{Method: "SendText", ChatID: chatID, Text: text})
	return nil
}

// AnswerCallback 记录回调应答
func (r *RecordingMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	r.record(MessengerCall{Method: "AnswerCallback", CallbackID: callbackID, Text: text})
	return nil
}

// Calls 返回全部调用记录的副本
func (r *RecordingMessenger) Calls() []MessengerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MessengerCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsOf 返回指定方法的调用记录
func (r *RecordingMessenger) CallsOf(method string) []MessengerCall {
	var out []MessengerCall
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}
