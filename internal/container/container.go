package container

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/api"
	"github.com/jmgc95/gcash-buy-backend/internal/config"
	"github.com/jmgc95/gcash-buy-backend/internal/database"
	"github.com/jmgc95/gcash-buy-backend/internal/metrics"
	"github.com/jmgc95/gcash-buy-backend/internal/notify"
	"github.com/jmgc95/gcash-buy-backend/internal/repository"
	"github.com/jmgc95/gcash-buy-backend/internal/service"
	"github.com/jmgc95/gcash-buy-backend/internal/storage"
	"github.com/jmgc95/gcash-buy-backend/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options 容器可替换的依赖,主要用于测试
type Options struct {
	// Messenger 为 nil 时使用 Telegram
	Messenger notify.Messenger
	// DB 为 nil 且 store.driver 为 database 时按配置连接
	DB *gorm.DB
}

// Container 依赖注入容器
// 管理所有应用依赖,包括仓储、通知、服务和路由
type Container struct {
	cfg        *config.Config
	logger     *logrus.Logger
	db         *gorm.DB
	repo       repository.SubmissionRepository
	messenger  notify.Messenger
	telegram   *notify.TelegramMessenger
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	receipts   service.ReceiptService
	collector  *metrics.Collector
	router     *gin.Engine
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger, opts Options) (*Container, error) {
	c := &Container{cfg: cfg, logger: logger, db: opts.DB}

	adminChatID, err := cfg.AdminChatID()
	if err != nil {
		return nil, err
	}

	// 1. 初始化仓储
	switch cfg.Store.Driver {
	case "database":
		if c.db == nil {
			// 默认重试 3 次，初始间隔 1 秒，指数退避
			c.db, err = database.ConnectWithRetry(cfg.Database, 3, time.Second)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize database: %w", err)
			}
		}
		if err := database.Migrate(c.db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		c.repo = repository.NewSubmissionRepository(c.db)
	default:
		c.repo = repository.NewMemoryRepository(repository.MemoryOptions{
			TTL:        cfg.Store.TTL,
			MaxEntries: cfg.Store.MaxEntries,
		})
	}

	// 2. 初始化文件存储
	files, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.ArtifactPath)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 3. 初始化消息通道
	c.messenger = opts.Messenger
	if c.messenger == nil {
		c.telegram, err = notify.NewTelegramMessenger(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.messenger = c.telegram
	}

	// 4. 初始化通知队列
	relay := notify.NewRelay(c.messenger, adminChatID)
	c.dispatcher = notify.NewDispatcher(relay, notify.DispatcherOptions{
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		MaxRetries: cfg.Notify.MaxRetries,
	}, logger.WithField("component", "notify"))

	// 5. 初始化状态推送
	c.hub = websocket.NewHub(logger.WithField("component", "websocket"))
	go c.hub.Run()

	// 6. 初始化服务
	c.receipts = service.NewReceiptService(c.repo, files, c.dispatcher, c.hub, cfg.AutoApproveKey,
		logger.WithField("component", "receipt"))
	callbacks := notify.NewCallbackHandler(c.messenger, c.receipts, logger.WithField("component", "callback"))

	// 7. 初始化指标收集
	c.collector = metrics.NewCollector(c.db, c.repo, 30*time.Second)
	c.collector.Start()

	// 8. 初始化路由
	var pinger api.Pinger
	if c.telegram != nil {
		pinger = c.telegram
	}
	c.router = api.SetupRoutes(api.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Health:   api.NewHealthController(c.db, pinger),
		Receipts: api.NewReceiptController(c.receipts, files.ArtifactName(), int64(cfg.Storage.MaxUploadMB)<<20, logger),
		Webhook:  api.NewWebhookController(callbacks, cfg.Telegram.BotToken, logger),
		Hub:      c.hub,
		Status:   c.receipts,
	})

	return c, nil
}

// DB 获取数据库连接,内存仓储时为 nil
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Router 获取 HTTP 路由
func (c *Container) Router() *gin.Engine {
	return c.router
}

// ReceiptService 获取收据服务
func (c *Container) ReceiptService() service.ReceiptService {
	return c.receipts
}

// Repository 获取提交记录仓储
func (c *Container) Repository() repository.SubmissionRepository {
	return c.repo
}

// Hub 获取状态推送 Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Telegram 获取 Telegram 消息通道,注入了其他 Messenger 时为 nil
func (c *Container) Telegram() *notify.TelegramMessenger {
	return c.telegram
}

// Close 关闭容器,清理资源
// 先等待通知队列投递完毕,再关闭数据库
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.WithError(err).Warn("notification dispatcher closed with error")
		}
	}
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.db != nil {
		database.Close(c.db)
	}
	return nil
}
