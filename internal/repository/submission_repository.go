package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("submission not found")

// SubmissionRepository 提交记录仓储接口
// 不提供删除和列表查询
type SubmissionRepository interface {
	// Save 保存新记录
	Save(ctx context.Context, sub *model.Submission) error
	// FindByID 根据 ID 查找记录,不存在时返回 ErrNotFound
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	// Transition 仅当记录仍处于 pending 时迁移到目标状态
	// changed 为 false 表示记录已是终态,本次调用不产生任何变更
	Transition(ctx context.Context, id string, to model.Status) (sub *model.Submission, changed bool, err error)
	// CountByStatus 按状态统计记录数,用于指标
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
}

// submissionRepository 基于 gorm 的提交记录仓储实现
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建数据库仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Save 保存记录
func (r *submissionRepository) Save(ctx context.Context, sub *model.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

// FindByID 根据 ID 查找记录
func (r *submissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Transition 条件更新,由数据库保证同一记录只会被决策一次
func (r *submissionRepository) Transition(ctx context.Context, id string, to model.Status) (*model.Submission, bool, error) {
	if !to.IsTerminal() {
		return nil, false, fmt.Errorf("invalid target status: %s", to)
	}

	res := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to update submission status: %w", res.Error)
	}

	sub, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return sub, res.RowsAffected == 1, nil
}

// CountByStatus 按状态统计记录数
func (r *submissionRepository) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	var rows []struct {
		Status model.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	counts := make(map[model.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
