package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmgc95/gcash-buy-backend/internal/api"
	"github.com/jmgc95/gcash-buy-backend/internal/config"
	"github.com/jmgc95/gcash-buy-backend/internal/container"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long: `Start the receipt approval HTTP server.
The server registers the Telegram webhook, accepts receipt uploads,
and serves the gated download once a receipt is approved.`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	// 1. 加载并校验配置,缺少必需配置时不启动
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyServerFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 2. 初始化日志
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	api.SetLogger(logger)
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 初始化追踪
	if cfg.Tracing.Enabled {
		if err := api.InitTracing(cfg.Tracing.JaegerEndpoint); err != nil {
			logger.WithError(err).Warn("failed to initialize tracing, continuing without it")
		}
	}

	// 4. 初始化容器
	ctr, err := container.NewContainer(cfg, logger, container.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer ctr.Close()

	// 5. 注册 Telegram webhook
	if cfg.Telegram.Webhook && ctr.Telegram() != nil {
		if err := ctr.Telegram().SetWebhook(cfg.WebhookURL()); err != nil {
			return err
		}
		logger.Info("telegram webhook registered")
	}

	// 6. 监听配置文件变更,热更新自动审核密钥
	if configPath != "" {
		watcher, err := config.NewConfigWatcher(cfg, configPath, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		watcher.OnConfigChange(func(next *config.Config) {
			ctr.ReceiptService().SetAutoApproveKey(next.AutoApproveKey)
			logger.Info("auto-approve key reloaded")
		})
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
		defer watcher.Stop()
	}

	// 7. 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           ctr.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down server")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if err := api.ShutdownTracing(ctx); err != nil {
		logger.WithError(err).Warn("failed to flush traces")
	}

	logger.Info("server exited")
	return nil
}

// applyServerFlags 命令行参数优先于配置文件和环境变量
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 3000, "Server port")
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}
