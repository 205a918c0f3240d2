package metrics

import (
	"context"
	"time"

	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"gorm.io/gorm"
)

// StatusCounter 按状态统计提交记录
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.Status]int64, error)
}

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB // 可为 nil,内存仓储时不采集连接数
	counter  StatusCounter
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, counter StatusCounter, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		counter:  counter,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// CollectOnce 立即采集一次
func (c *Collector) CollectOnce(ctx context.Context) {
	if c.db != nil {
		_ = UpdateDatabaseConnections(c.db)
	}
	if c.counter == nil {
		return
	}
	counts, err := c.counter.CountByStatus(ctx)
	if err != nil {
		return
	}
	for _, status := range []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected} {
		UpdateSubmissionsByStatus(string(status), float64(counts[status]))
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce(c.ctx)
		}
	}
}
