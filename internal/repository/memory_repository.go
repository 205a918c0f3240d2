package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jmgc95/gcash-buy-backend/internal/model"
)

// MemoryOptions 内存仓储选项
type MemoryOptions struct {
	// TTL 大于 0 时记录在创建后 TTL 过期,为 0 时永不清理
	TTL time.Duration
	// MaxEntries 仅在 TTL 启用时生效,0 表示不限制
	MaxEntries int
}

// recordMap 内存记录容器
type recordMap interface {
	get(id string) (*model.Submission, bool)
	put(id string, sub *model.Submission)
	values() []*model.Submission
}

type plainMap map[string]*model.Submission

func (m plainMap) get(id string) (*model.Submission, bool) {
	sub, ok := m[id]
	return sub, ok
}

func (m plainMap) put(id string, sub *model.Submission) {
	m[id] = sub
}

func (m plainMap) values() []*model.Submission {
	out := make([]*model.Submission, 0, len(m))
	for _, sub := range m {
		out = append(out, sub)
	}
	return out
}

type expiringMap struct {
	lru *expirable.LRU[string, *model.Submission]
}

func (m expiringMap) get(id string) (*model.Submission, bool) {
	return m.lru.Get(id)
}

func (m expiringMap) put(id string, sub *model.Submission) {
	m.lru.Add(id, sub)
}

func (m expiringMap) values() []*model.Submission {
	return m.lru.Values()
}

// memoryRepository 进程内仓储,进程重启后数据丢失
type memoryRepository struct {
	mu      sync.Mutex
	records recordMap
}

// NewMemoryRepository 创建内存仓储
func NewMemoryRepository(opts MemoryOptions) SubmissionRepository {
	var records recordMap = plainMap{}
	if opts.TTL > 0 {
		records = expiringMap{lru: expirable.NewLRU[string, *model.Submission](opts.MaxEntries, nil, opts.TTL)}
	}
	return &memoryRepository{records: records}
}

// Save 保存记录
func (r *memoryRepository) Save(_ context.Context, sub *model.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records.get(sub.ID); exists {
		return fmt.Errorf("submission %s already exists", sub.ID)
	}
	r.records.put(sub.ID, sub.Clone())
	return nil
}

// FindByID 根据 ID 查找记录
func (r *memoryRepository) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.records.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

// Transition 在锁内完成检查与更新
func (r *memoryRepository) Transition(_ context.Context, id string, to model.Status) (*model.Submission, bool, error) {
	if !to.IsTerminal() {
		return nil, false, fmt.Errorf("invalid target status: %s", to)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.records.get(id)
	if !ok {
		return nil, false, ErrNotFound
	}
	if !sub.Status.CanTransitionTo(to) {
		return sub.Clone(), false, nil
	}

	sub.Status = to
	sub.UpdatedAt = time.Now()
	return sub.Clone(), true, nil
}

// CountByStatus 按状态统计记录数
func (r *memoryRepository) CountByStatus(_ context.Context) (map[model.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[model.Status]int64)
	for _, sub := range r.records.values() {
		counts[sub.Status]++
	}
	return counts, nil
}
