package model

import (
	"errors"
	"time"
)

// Status 收据审核状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// 默认元数据
const (
	DefaultName   = "Unknown"
	DefaultEmail  = "N/A"
	DefaultAmount = "149"
)

// IsTerminal 判断状态是否为终态
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo 判断是否允许从当前状态迁移到目标状态
// 仅允许 pending -> approved 和 pending -> rejected
func (s Status) CanTransitionTo(to Status) bool {
	return s == StatusPending && to.IsTerminal()
}

// Decision 管理员审核动作
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision 解析审核动作
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), true
	}
	return "", false
}

// TargetStatus 返回审核动作对应的目标状态
func (d Decision) TargetStatus() Status {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Submission 付款收据提交记录
type Submission struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Token     string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	Amount    string    `gorm:"type:varchar(64);not null" json:"amount"`
	Status    Status    `gorm:"type:varchar(32);not null;index" json:"status"`
	FilePath  string    `gorm:"type:varchar(512);not null" json:"-"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Submission) TableName() string {
	return "submissions"
}

// Validate 验证提交记录
func (s *Submission) Validate() error {
	if s.ID == "" {
		return errors.New("submission ID is required")
	}
	if s.Token == "" {
		return errors.New("submission token is required")
	}
	if s.FilePath == "" {
		return errors.New("receipt file path is required")
	}
	switch s.Status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return errors.New("invalid submission status")
	}
	return nil
}

// ApplyDefaults 为缺省的元数据填充默认值
func (s *Submission) ApplyDefaults() {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.Email == "" {
		s.Email = DefaultEmail
	}
	if s.Amount == "" {
		s.Amount = DefaultAmount
	}
}

// Clone 返回记录的副本,避免调用方修改仓储内部状态
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
