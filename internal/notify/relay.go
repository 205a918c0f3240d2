package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/jmgc95/gcash-buy-backend/internal/repository"
	"github.com/jmgc95/gcash-buy-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const callbackSeparator = "_"

// EncodeCallbackData 生成按钮携带的回调数据,格式 <action>_<id>
func EncodeCallbackData(d model.Decision, id string) string {
	return string(d) + callbackSeparator + id
}

// ParseCallbackData 解析回调数据,仅在第一个分隔符处切分
func ParseCallbackData(data string) (model.Decision, string, bool) {
	action, id, found := strings.Cut(data, callbackSeparator)
	if !found || !utils.ValidID(id) {
		return "", "", false
	}
	d, ok := model.ParseDecision(action)
	if !ok {
		return "", "", false
	}
	return d, id, true
}

// BuildControls 返回待审核记录的审核按钮,已决策的记录没有按钮
func BuildControls(sub *model.Submission) []Control {
	if sub.Status != model.StatusPending {
		return nil
	}
	return []Control{
		{Text: "Approve", Data: EncodeCallbackData(model.DecisionApprove, sub.ID)},
		{Text: "Reject", Data: EncodeCallbackData(model.DecisionReject, sub.ID)},
	}
}

// Caption 生成发送给管理员的收据摘要
func Caption(sub *model.Submission) string {
	status := "Pending Approval"
	if sub.Status == model.StatusApproved {
		status = "AUTO APPROVED"
	}

	var b strings.Builder
	b.WriteString("New Payment Receipt\n\n")
	fmt.Fprintf(&b, "Name: %s\n", sub.Name)
	fmt.Fprintf(&b, "Email: %s\n", sub.Email)
	fmt.Fprintf(&b, "Amount: ₱%s\n", sub.Amount)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Upload ID: %s", sub.ID)
	return b.String()
}

// Relay 向管理员会话发送新收据
type Relay struct {
	messenger   Messenger
	adminChatID int64
}

// NewRelay 创建出站通知
func NewRelay(messenger Messenger, adminChatID int64) *Relay {
	return &Relay{
		messenger:   messenger,
		adminChatID: adminChatID,
	}
}

// Notify 发送收据图片和摘要,待审核时附带审核按钮
func (r *Relay) Notify(ctx context.Context, sub *model.Submission) error {
	_, err := r.messenger.SendPhoto(ctx, r.adminChatID, sub.FilePath, Caption(sub), BuildControls(sub))
	return err
}

// Decider 执行审核决策的状态机
type Decider interface {
	Decide(ctx context.Context, id string, d model.Decision) (sub *model.Submission, changed bool, err error)
}

// CallbackHandler 处理管理员的审核回调
type CallbackHandler struct {
	messenger Messenger
	decider   Decider
	logger    logrus.FieldLogger
}

// NewCallbackHandler 创建回调处理器
func NewCallbackHandler(messenger Messenger, decider Decider, logger logrus.FieldLogger) *CallbackHandler {
	return &CallbackHandler{
		messenger: messenger,
		decider:   decider,
		logger:    logger,
	}
}

// Handle 将回调归约为状态迁移
// 无论结果如何都会应答回调；重复回调不会重复发送确认消息
func (h *CallbackHandler) Handle(ctx context.Context, cb Callback) error {
	lang := i18n.Normalize(cb.Language)
	log := h.logger.WithFields(logrus.Fields{
		"callback_id": cb.ID,
		"data":        cb.Data,
	})

	decision, id, ok := ParseCallbackData(cb.Data)
	if !ok {
		log.Warn("malformed callback data")
		h.answer(ctx, log, cb.ID, i18n.T(lang, i18n.KeyCallbackInvalid))
		return nil
	}
	log = log.WithFields(logrus.Fields{"submission_id": id, "action": decision})

	sub, changed, err := h.decider.Decide(ctx, id, decision)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("callback for unknown submission")
		h.answer(ctx, log, cb.ID, i18n.T(lang, i18n.KeyCallbackInvalid))
		return nil
	}
	if err != nil {
		log.WithError(err).Error("failed to apply decision")
		h.answer(ctx, log, cb.ID, i18n.T(lang, i18n.KeyCallbackFailed))
		return err
	}

	if !changed {
		log.WithField("status", sub.Status).Info("duplicate decision ignored")
		h.answer(ctx, log, cb.ID, i18n.T(lang, i18n.KeyCallbackDecided, strings.ToUpper(string(sub.Status))))
		return nil
	}

	if err := h.messenger.ClearControls(ctx, cb.Message); err != nil {
		log.WithError(err).Warn("failed to clear decision controls")
	}
	confirmation := i18n.T("en", i18n.KeyDecisionNotified, sub.ID, strings.ToUpper(string(sub.Status)))
	if err := h.messenger.SendText(ctx, cb.Message.ChatID, confirmation); err != nil {
		log.WithError(err).Warn("failed to send decision confirmation")
	}
	h.answer(ctx, log, cb.ID, "")

	log.WithField("status", sub.Status).Info("submission decided")
	return nil
}

func (h *CallbackHandler) answer(ctx context.Context, log logrus.FieldLogger, callbackID, text string) {
	if err := h.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		log.WithError(err).Warn("failed to answer callback")
	}
}
