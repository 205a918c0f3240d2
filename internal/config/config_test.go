package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmgc95/gcash-buy-backend/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.AdminChatID = "-1001234"
	cfg.PublicBaseURL = "https://pay.example.com/"
	return cfg
}

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, time.Duration(0), cfg.Store.TTL)
	assert.Equal(t, "./GTracker-1.0-release.apk", cfg.Storage.ArtifactPath)
	assert.Equal(t, "", cfg.AutoApproveKey)
}

// TestLoad_LegacyEnvironmentVariables 测试兼容旧部署的环境变量
func TestLoad_LegacyEnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "42")
	t.Setenv("PUBLIC_BASE_URL", "https://pay.example.com")
	t.Setenv("AUTO_APPROVE_KEY", "secret")
	t.Setenv("PORT", "8081")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "secret", cfg.AutoApproveKey)
	assert.Equal(t, 8081, cfg.Server.Port)
	id, err := cfg.AdminChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

// TestLoad_PrefixedEnvironmentVariables 测试 APP_ 前缀的环境变量
func TestLoad_PrefixedEnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_TELEGRAM_BOT_TOKEN", "999:xyz")
	t.Setenv("APP_STORE_DRIVER", "database")
	t.Setenv("APP_STORE_TTL", "24h")
	t.Setenv("APP_NOTIFY_WORKERS", "4")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "999:xyz", cfg.Telegram.BotToken)
	assert.Equal(t, "database", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, 4, cfg.Notify.Workers)
}

// TestLoad_DotEnv 测试 .env 文件,已存在的环境变量优先
func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"TELEGRAM_BOT_TOKEN=from-dotenv\nTELEGRAM_ADMIN_CHAT_ID=7\nPUBLIC_BASE_URL=https://dotenv.example.com\n",
	), 0o644))
	t.Setenv("PUBLIC_BASE_URL", "https://env.example.com")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_ADMIN_CHAT_ID")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Telegram.BotToken)
	assert.Equal(t, "7", cfg.Telegram.AdminChatID)
	assert.Equal(t, "https://env.example.com", cfg.PublicBaseURL)
}

// TestLoad_ConfigFile 测试 YAML 配置文件
func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auto_approve_key: file-key
telegram:
  bot_token: "1:file"
  admin_chat_id: "5"
public_base_url: https://file.example.com
storage:
  artifact_path: ./dist/app.apk
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.AutoApproveKey)
	assert.Equal(t, "./dist/app.apk", cfg.Storage.ArtifactPath)
	assert.NoError(t, cfg.Validate())
}

// TestValidate_MissingRequired 测试缺少必需配置
func TestValidate_MissingRequired(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "TELEGRAM_ADMIN_CHAT_ID")
	assert.Contains(t, err.Error(), "PUBLIC_BASE_URL")
}

// TestValidate_InvalidValues 测试非法配置值
func TestValidate_InvalidValues(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.AdminChatID = "not-a-number"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Driver = "redis"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Store.Driver = "database"
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	assert.NoError(t, validConfig().Validate())
}

// TestWebhookURL 测试 webhook 地址
func TestWebhookURL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "/bot123:abc", cfg.WebhookPath())
	assert.Equal(t, "https://pay.example.com/bot123:abc", cfg.WebhookURL())
}

// TestConfigWatcher_Reload 测试配置文件变更后触发回调
func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auto_approve_key: first\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	watcher, err := config.NewConfigWatcher(cfg, path, logger)
	require.NoError(t, err)

	keys := make(chan string, 16)
	watcher.OnConfigChange(func(next *config.Config) {
		keys <- next.AutoApproveKey
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("auto_approve_key: second\n"), 0o644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case key := <-keys:
			// 写文件时可能先收到截断事件
			if key != "second" {
				continue
			}
			assert.Eventually(t, func() bool {
				return watcher.GetConfig().AutoApproveKey == "second"
			}, time.Second, 10*time.Millisecond)
			return
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
