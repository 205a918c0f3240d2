package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jmgc95/gcash-buy-backend/internal/metrics"
	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sender 单次投递
type Sender interface {
	Notify(ctx context.Context, sub *model.Submission) error
}

// DispatcherOptions 投递队列选项
type DispatcherOptions struct {
	Workers        int
	QueueSize      int
	MaxRetries     int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
}

// Dispatcher 尽力而为的异步通知队列
// 投递失败只记录日志和指标,不会影响已创建的记录
type Dispatcher struct {
	sender Sender
	opts   DispatcherOptions
	logger logrus.FieldLogger

	queue  chan *model.Submission
	group  errgroup.Group
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher 创建投递队列并启动 worker
func NewDispatcher(sender Sender, opts DispatcherOptions, logger logrus.FieldLogger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}

	d := &Dispatcher{
		sender: sender,
		opts:   opts,
		logger: logger,
		queue:  make(chan *model.Submission, opts.QueueSize),
	}

	// 启动 worker goroutines
	for i := 0; i < opts.Workers; i++ {
		d.group.Go(func() error {
			for sub := range d.queue {
				d.deliver(sub)
			}
			return nil
		})
	}

	return d
}

// Notify 将记录加入投递队列,不会阻塞调用方
func (d *Dispatcher) Notify(sub *model.Submission) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	log := d.logger.WithField("submission_id", sub.ID)
	if d.closed {
		log.Error("notification dispatcher closed, dropping notification")
		metrics.RecordNotification("dropped")
		return
	}

	select {
	case d.queue <- sub.Clone():
	default:
		// 队列满时记录日志,不阻塞
		log.Error("notification queue full, dropping notification")
		metrics.RecordNotification("dropped")
	}
}

// deliver 带重试的投递
func (d *Dispatcher) deliver(sub *model.Submission) {
	log := d.logger.WithField("submission_id", sub.ID)
	backoff := d.opts.InitialBackoff

	var err error
	for attempt := 1; attempt <= d.opts.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.AttemptTimeout)
		err = d.sender.Notify(ctx, sub)
		cancel()
		if err == nil {
			metrics.RecordNotification("sent")
			log.WithField("attempt", attempt).Debug("admin notified")
			return
		}

		log.WithError(err).WithField("attempt", attempt).Warn("admin notification attempt failed")
		// 如果还有重试机会，等待后重试
		if attempt < d.opts.MaxRetries {
			time.Sleep(backoff)
			backoff *= 2 // 指数退避
		}
	}

	metrics.RecordNotification("failed")
	log.WithError(err).Error("admin notification failed")
}

// Close 停止接收新通知,等待队列中的通知投递完毕
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	return d.group.Wait()
}
