package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmgc95/gcash-buy-backend/internal/i18n"
	"github.com/jmgc95/gcash-buy-backend/internal/metrics"
	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/jmgc95/gcash-buy-backend/internal/repository"
	"github.com/jmgc95/gcash-buy-backend/internal/storage"
	"github.com/jmgc95/gcash-buy-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoFile 未上传收据文件
	ErrNoFile = errors.New("no file uploaded")
	// ErrAccessDenied 下载授权失败,不区分具体原因
	ErrAccessDenied = errors.New("access denied")
	// ErrArtifactMissing 可下载文件不存在
	ErrArtifactMissing = storage.ErrArtifactMissing
)

// Notifier 尽力而为的管理员通知
type Notifier interface {
	Notify(sub *model.Submission)
}

// StatusPublisher 状态变更推送
type StatusPublisher interface {
	PublishStatus(id string, status model.Status)
}

// FileStore 收据与可下载文件存储
type FileStore interface {
	SaveReceipt(originalName string, r io.Reader) (string, error)
	Artifact() (string, error)
}

// ReceiptService 收据服务接口
type ReceiptService interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	Query(ctx context.Context, id string) (map[string]StatusView, error)
	Decide(ctx context.Context, id string, d model.Decision) (*model.Submission, bool, error)
	Authorize(ctx context.Context, id, token string) error
	Download(ctx context.Context, id, token string) (string, error)
	Watch(ctx context.Context, id, token string) (*StatusView, error)
	SetAutoApproveKey(key string)
}

// SubmitRequest 上传请求
type SubmitRequest struct {
	Name     string
	Email    string
	Amount   string
	AutoKey  string
	FileName string
	File     io.Reader // 为 nil 表示未上传文件
	FileSize int64
	Language string
}

// SubmitResult 上传结果
type SubmitResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusView 状态查询结果
type StatusView struct {
	Status model.Status `json:"status"`
	ID     string       `json:"id"`
	Token  string       `json:"token"`
}

type receiptService struct {
	repo      repository.SubmissionRepository
	files     FileStore
	notifier  Notifier
	publisher StatusPublisher
	logger    logrus.FieldLogger

	mu             sync.RWMutex
	autoApproveKey string
}

// NewReceiptService 创建收据服务
// publisher 可为 nil
func NewReceiptService(
	repo repository.SubmissionRepository,
	files FileStore,
	notifier Notifier,
	publisher StatusPublisher,
	autoApproveKey string,
	logger logrus.FieldLogger,
) ReceiptService {
	return &receiptService{
		repo:           repo,
		files:          files,
		notifier:       notifier,
		publisher:      publisher,
		logger:         logger,
		autoApproveKey: autoApproveKey,
	}
}

// SetAutoApproveKey 更新自动审核密钥,配置热加载时调用
func (s *receiptService) SetAutoApproveKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoApproveKey = key
}

func (s *receiptService) autoApproved(supplied string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// 未配置密钥时不自动审核
	if s.autoApproveKey == "" {
		return false
	}
	return supplied == s.autoApproveKey
}

// Submit 创建提交记录
func (s *receiptService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	// 1. 校验文件
	if req.File == nil || req.FileSize == 0 {
		return &SubmitResult{Success: false, Message: i18n.T(req.Language, i18n.KeyNoFile)}, nil
	}

	// 2. 保存收据文件
	path, err := s.files.SaveReceipt(req.FileName, req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	// 3. 创建记录
	now := time.Now()
	sub := &model.Submission{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		Name:      utils.CleanField(req.Name, utils.MaxFieldLength),
		Email:     utils.CleanField(req.Email, utils.MaxFieldLength),
		Amount:    utils.CleanField(req.Amount, utils.MaxFieldLength),
		Status:    model.StatusPending,
		FilePath:  path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sub.ApplyDefaults()
	auto := s.autoApproved(req.AutoKey)
	if auto {
		sub.Status = model.StatusApproved
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	metrics.RecordSubmission(auto)

	// 4. 通知管理员(异步,失败不影响结果)
	s.notifier.Notify(sub)

	s.logger.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"status":        sub.Status,
	}).Info("receipt submitted")

	return &SubmitResult{Success: true, ID: sub.ID}, nil
}

// Query 查询状态,id 为空或不存在时返回空结果
func (s *receiptService) Query(ctx context.Context, id string) (map[string]StatusView, error) {
	result := map[string]StatusView{}
	if !utils.ValidID(id) {
		return result, nil
	}

	sub, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query submission: %w", err)
	}

	result[sub.ID] = StatusView{Status: sub.Status, ID: sub.ID, Token: sub.Token}
	return result, nil
}

// Decide 执行审核决策,仅在记录处于 pending 时生效
// 重复决策返回 changed=false 且不报错
func (s *receiptService) Decide(ctx context.Context, id string, d model.Decision) (*model.Submission, bool, error) {
	sub, changed, err := s.repo.Transition(ctx, id, d.TargetStatus())
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordDecision(string(d), "not_found")
		return nil, false, fmt.Errorf("decide %s: %w", id, err)
	}
	if err != nil {
		metrics.RecordDecision(string(d), "error")
		return nil, false, fmt.Errorf("decide %s: %w", id, err)
	}

	if !changed {
		metrics.RecordDecision(string(d), "duplicate")
		return sub, false, nil
	}

	metrics.RecordDecision(string(d), "applied")
	if s.publisher != nil {
		s.publisher.PublishStatus(sub.ID, sub.Status)
	}
	return sub, true, nil
}

// Authorize 校验下载授权:记录存在、token 一致且已审核通过
func (s *receiptService) Authorize(ctx context.Context, id, token string) error {
	if id == "" || token == "" {
		return ErrAccessDenied
	}

	sub, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccessDenied
	}
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(sub.Token), []byte(token)) != 1 {
		return ErrAccessDenied
	}
	if sub.Status != model.StatusApproved {
		return ErrAccessDenied
	}
	return nil
}

// Download 授权通过后返回可下载文件路径
func (s *receiptService) Download(ctx context.Context, id, token string) (string, error) {
	if err := s.Authorize(ctx, id, token); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			metrics.RecordDownload("denied")
		}
		return "", err
	}

	path, err := s.files.Artifact()
	if err != nil {
		if errors.Is(err, ErrArtifactMissing) {
			metrics.RecordDownload("missing")
		}
		return "", err
	}

	metrics.RecordDownload("served")
	return path, nil
}

// Watch 校验 id 与 token 后返回当前状态,不要求已审核
func (s *receiptService) Watch(ctx context.Context, id, token string) (*StatusView, error) {
	if id == "" || token == "" {
		return nil, ErrAccessDenied
	}

	sub, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(sub.Token), []byte(token)) != 1 {
		return nil, ErrAccessDenied
	}
	return &StatusView{Status: sub.Status, ID: sub.ID, Token: sub.Token}, nil
}
