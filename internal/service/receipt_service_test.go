package service_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/jmgc95/gcash-buy-backend/internal/notify"
	"github.com/jmgc95/gcash-buy-backend/internal/repository"
	"github.com/jmgc95/gcash-buy-backend/internal/service"
	"github.com/jmgc95/gcash-buy-backend/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const autoKey = "letmein"

// syncNotifier 同步调用 Relay,便于断言
type syncNotifier struct {
	relay *notify.Relay
}

func (n syncNotifier) Notify(sub *model.Submission) {
	_ = n.relay.Notify(context.Background(), sub)
}

// recordingPublisher 记录状态推送
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Status
}

func (p *recordingPublisher) PublishStatus(_ string, status model.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, status)
}

type fixture struct {
	svc       service.ReceiptService
	repo      repository.SubmissionRepository
	messenger *notify.RecordingMessenger
	publisher *recordingPublisher
	artifact  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "GTracker-1.0-release.apk")
	files, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"), artifact)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		repo:      repository.NewMemoryRepository(repository.MemoryOptions{}),
		messenger: notify.NewRecordingMessenger(),
		publisher: &recordingPublisher{},
		artifact:  artifact,
	}
	notifier := syncNotifier{relay: notify.NewRelay(f.messenger, -100)}
	f.svc = service.NewReceiptService(f.repo, files, notifier, f.publisher, autoKey, logger)
	return f
}

func (f *fixture) writeArtifact(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.artifact, []byte("apk"), 0o644))
}

func submitRequest(autokey string) *service.SubmitRequest {
	body := "fake-png"
	return &service.SubmitRequest{
		Name:     "Juan",
		Email:    "juan@example.com",
		Amount:   "149",
		AutoKey:  autokey,
		FileName: "receipt.png",
		File:     strings.NewReader(body),
		FileSize: int64(len(body)),
	}
}

func (f *fixture) submit(t *testing.T, autokey string) string {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), submitRequest(autokey))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)
	return res.ID
}

func (f *fixture) token(t *testing.T, id string) string {
	t.Helper()
	views, err := f.svc.Query(context.Background(), id)
	require.NoError(t, err)
	require.Contains(t, views, id)
	return views[id].Token
}

// TestSubmit_NoFile 测试未上传文件时返回结构化失败
func TestSubmit_NoFile(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Submit(context.Background(), &service.SubmitRequest{Name: "Juan"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.ID)
	assert.Equal(t, "No file uploaded", res.Message)

	empty := submitRequest("")
	empty.File = strings.NewReader("")
	empty.FileSize = 0
	res, err = f.svc.Submit(context.Background(), empty)
	require.NoError(t, err)
	assert.False(t, res.Success)

	counts, err := f.repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.Empty(t, f.messenger.Calls())
}

// TestSubmit_AutoApproved 测试自动审核:立即通过且没有审核按钮
func TestSubmit_AutoApproved(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, autoKey)

	views, err := f.svc.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, views[id].Status)

	photos := f.messenger.CallsOf("SendPhoto")
	require.Len(t, photos, 1)
	assert.Empty(t, photos[0].Controls)
	assert.Contains(t, photos[0].Text, "Status: AUTO APPROVED")
}

// TestSubmit_Pending 测试非匹配密钥:待审核且有两个按钮
func TestSubmit_Pending(t *testing.T) {
	for _, key := range []string{"", "wrong", "LETMEIN", autoKey + " "} {
		t.Run("key="+key, func(t *testing.T) {
			f := newFixture(t)
			id := f.submit(t, key)

			views, err := f.svc.Query(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, model.StatusPending, views[id].Status)

			photos := f.messenger.CallsOf("SendPhoto")
			require.Len(t, photos, 1)
			require.Len(t, photos[0].Controls, 2)
			assert.Equal(t, "approve_"+id, photos[0].Controls[0].Data)
			assert.Equal(t, "reject_"+id, photos[0].Controls[1].Data)
		})
	}
}

// TestSubmit_EmptyConfiguredKeyNeverApproves 测试未配置密钥时不会自动审核
func TestSubmit_EmptyConfiguredKeyNeverApproves(t *testing.T) {
	f := newFixture(t)
	f.svc.SetAutoApproveKey("")

	id := f.submit(t, "")
	views, err := f.svc.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, views[id].Status)
}

// TestSubmit_HotReloadedKey 测试热更新后的密钥生效
func TestSubmit_HotReloadedKey(t *testing.T) {
	f := newFixture(t)
	f.svc.SetAutoApproveKey("rotated")

	old := f.submit(t, autoKey)
	rotated := f.submit(t, "rotated")

	views, _ := f.svc.Query(context.Background(), old)
	assert.Equal(t, model.StatusPending, views[old].Status)
	views, _ = f.svc.Query(context.Background(), rotated)
	assert.Equal(t, model.StatusApproved, views[rotated].Status)
}

// TestSubmit_Defaults 测试缺省元数据
func TestSubmit_Defaults(t *testing.T) {
	f := newFixture(t)
	req := submitRequest("")
	req.Name, req.Email, req.Amount = "", "  ", ""
	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	sub, err := f.repo.FindByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", sub.Name)
	assert.Equal(t, "N/A", sub.Email)
	assert.Equal(t, "149", sub.Amount)
	assert.NotEqual(t, sub.ID, sub.Token)
}

// TestSubmit_NotificationFailure 测试通知失败不影响上传结果
func TestSubmit_NotificationFailure(t *testing.T) {
	f := newFixture(t)
	f.messenger.FailSend = true
	f.messenger.SendErr = assert.AnError

	id := f.submit(t, "")
	views, err := f.svc.Query(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, views, id)
}

// TestQuery_Unknown 测试未知或缺失 id 返回空结果
func TestQuery_Unknown(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"", "00000000-0000-0000-0000-000000000000", "not valid"} {
		views, err := f.svc.Query(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.NotNil(t, views)
	}
}

// TestDecide_Idempotent 测试重复决策
func TestDecide_Idempotent(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "")

	sub, changed, err := f.svc.Decide(context.Background(), id, model.DecisionApprove)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.StatusApproved, sub.Status)

	sub, changed, err = f.svc.Decide(context.Background(), id, model.DecisionApprove)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.StatusApproved, sub.Status)

	sub, changed, err = f.svc.Decide(context.Background(), id, model.DecisionReject)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.StatusApproved, sub.Status)

	// 只有真正的迁移会推送
	assert.Equal(t, []model.Status{model.StatusApproved}, f.publisher.events)
}

// TestDecide_NotFound 测试未知 id
func TestDecide_NotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Decide(context.Background(), "missing", model.DecisionApprove)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestDownload_RoundTrip 测试查询返回的 token 可用于下载
func TestDownload_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.writeArtifact(t)
	id := f.submit(t, "")
	token := f.token(t, id)

	_, err := f.svc.Download(context.Background(), id, token)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, _, err = f.svc.Decide(context.Background(), id, model.DecisionApprove)
	require.NoError(t, err)

	path, err := f.svc.Download(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, f.artifact, path)
}

// TestAuthorize_Boundaries 测试下载授权的边界条件
func TestAuthorize_Boundaries(t *testing.T) {
	f := newFixture(t)
	approved := f.submit(t, autoKey)
	approvedToken := f.token(t, approved)
	pending := f.submit(t, "")
	pendingToken := f.token(t, pending)
	rejected := f.submit(t, "")
	rejectedToken := f.token(t, rejected)
	_, _, err := f.svc.Decide(context.Background(), rejected, model.DecisionReject)
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, f.svc.Authorize(ctx, approved, approvedToken))
	assert.ErrorIs(t, f.svc.Authorize(ctx, pending, pendingToken), service.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Authorize(ctx, rejected, rejectedToken), service.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Authorize(ctx, approved, pendingToken), service.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Authorize(ctx, approved, ""), service.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Authorize(ctx, "unknown", approvedToken), service.ErrAccessDenied)
	assert.ErrorIs(t, f.svc.Authorize(ctx, approvedToken, approved), service.ErrAccessDenied)
}

// TestDownload_ArtifactMissing 测试授权通过但文件不存在
func TestDownload_ArtifactMissing(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, autoKey)

	_, err := f.svc.Download(context.Background(), id, f.token(t, id))
	assert.ErrorIs(t, err, service.ErrArtifactMissing)
}

// TestWatch 测试订阅凭证校验不要求已审核
func TestWatch(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "")
	token := f.token(t, id)

	view, err := f.svc.Watch(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, view.Status)

	_, err = f.svc.Watch(context.Background(), id, "wrong")
	assert.ErrorIs(t, err, service.ErrAccessDenied)
}
