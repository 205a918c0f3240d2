package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMessenger 基于 Telegram Bot API 的消息通道
type TelegramMessenger struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramMessenger 创建 Telegram 消息通道
// endpoint 为空时使用官方 API 地址
func NewTelegramMessenger(token, endpoint string) (*TelegramMessenger, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramMessenger{bot: bot}, nil
}

// SetWebhook 注册 webhook 地址,Telegram 将更新推送到该地址
func (m *TelegramMessenger) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := m.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// Ping 检查 Bot API 是否可用
func (m *TelegramMessenger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.bot.GetMe()
	return err
}

// SendPhoto 发送收据图片
func (m *TelegramMessenger) SendPhoto(ctx context.Context, chatID int64, photoPath, caption string, controls []Control) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photoPath))
	photo.Caption = caption
	if len(controls) > 0 {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(controls))
		for _, c := range controls {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Text, c.Data))
		}
		photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons)
	}

	msg, err := m.bot.Send(photo)
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to send photo: %w", err)
	}
	ref := MessageRef{ChatID: chatID, MessageID: msg.MessageID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref, nil
}

// ClearControls 将消息的 inline keyboard 替换为空
func (m *TelegramMessenger) ClearControls(ctx context.Context, ref MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := m.bot.Request(edit); err != nil {
		return fmt.Errorf("failed to clear reply markup: %w", err)
	}
	return nil
}

// SendText 发送文本消息
func (m *TelegramMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// AnswerCallback 应答回调查询
func (m *TelegramMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// CallbackFromUpdate 从 Telegram 更新中提取回调事件
// 非回调类型的更新返回 false
func CallbackFromUpdate(update *tgbotapi.Update) (Callback, bool) {
	if update == nil || update.CallbackQuery == nil {
		return Callback{}, false
	}
	q := update.CallbackQuery
	cb := Callback{
		ID:   q.ID,
		Data: q.Data,
	}
	if q.Message != nil {
		cb.Message.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			cb.Message.ChatID = q.Message.Chat.ID
		}
	}
	if q.From != nil {
		cb.Language = q.From.LanguageCode
	}
	return cb, true
}
