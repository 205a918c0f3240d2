package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env            string         `mapstructure:"env"` // 环境: development, production
	PublicBaseURL  string         `mapstructure:"public_base_url"`
	AutoApproveKey string         `mapstructure:"auto_approve_key"`
	Server         ServerConfig   `mapstructure:"server"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
	Storage        StorageConfig  `mapstructure:"storage"`
	Store          StoreConfig    `mapstructure:"store"`
	Database       DatabaseConfig `mapstructure:"database"`
	Notify         NotifyConfig   `mapstructure:"notify"`
	CORS           CORSConfig     `mapstructure:"cors"`
	Log            LogConfig      `mapstructure:"log"`
	Tracing        TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// TelegramConfig Telegram 机器人配置
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AdminChatID string `mapstructure:"admin_chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"` // 为空时使用官方地址
	Webhook     bool   `mapstructure:"webhook"`      // 启动时是否调用 setWebhook
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	UploadDir    string `mapstructure:"upload_dir"`
	ArtifactPath string `mapstructure:"artifact_path"` // 审核通过后可下载的固定文件
	PublicDir    string `mapstructure:"public_dir"`
	MaxUploadMB  int    `mapstructure:"max_upload_mb"`
}

// StoreConfig 记录仓储配置
type StoreConfig struct {
	Driver     string        `mapstructure:"driver"` // memory, database
	TTL        time.Duration `mapstructure:"ttl"`    // 仅 memory,0 表示永不过期
	MaxEntries int           `mapstructure:"max_entries"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	DSN             string `mapstructure:"dsn"`    // sqlite 文件路径或完整的 postgres DSN
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// NotifyConfig 管理员通知配置
type NotifyConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueSize  int `mapstructure:"queue_size"`
	MaxRetries int `mapstructure:"max_retries"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// legacyEnv 兼容旧部署使用的环境变量名
var legacyEnv = map[string]string{
	"telegram.bot_token":     "TELEGRAM_BOT_TOKEN",
	"telegram.admin_chat_id": "TELEGRAM_ADMIN_CHAT_ID",
	"public_base_url":        "PUBLIC_BASE_URL",
	"auto_approve_key":       "AUTO_APPROVE_KEY",
	"server.port":            "PORT",
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	// .env 中的变量不会覆盖已存在的环境变量
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	// 如果提供了配置文件路径,从文件加载
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// 尝试从默认位置加载
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.gcash-buy")
		// 忽略配置文件不存在的错误,使用默认值
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// newViper 创建带默认值和环境变量绑定的 viper 实例
func newViper() (*viper.Viper, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 支持环境变量
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		envKey := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, name); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", name, err)
		}
	}
	return v, nil
}

// LoadDotEnv 读取 KEY=VALUE 格式的文件并写入进程环境变量
// 文件不存在时直接返回
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// Validate 校验启动必需的配置,缺失时服务不得启动
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Telegram.AdminChatID) == "" {
		missing = append(missing, "TELEGRAM_ADMIN_CHAT_ID")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, " / "))
	}

	if _, err := c.AdminChatID(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "memory", "database":
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	if c.Store.Driver == "database" {
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
		}
	}
	if c.Storage.ArtifactPath == "" {
		return errors.New("storage.artifact_path must not be empty")
	}
	return nil
}

// AdminChatID 返回数值形式的管理员会话 ID
func (c *Config) AdminChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.AdminChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID %q: %w", c.Telegram.AdminChatID, err)
	}
	return id, nil
}

// WebhookPath 返回 Telegram 推送更新的路由路径
func (c *Config) WebhookPath() string {
	return "/bot" + c.Telegram.BotToken
}

// WebhookURL 返回注册到 Telegram 的完整 webhook 地址
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + c.WebhookPath()
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 环境变量
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	v.SetDefault("env", env)

	v.SetDefault("public_base_url", "")
	v.SetDefault("auto_approve_key", "")

	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)

	// Telegram 默认配置
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.admin_chat_id", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("telegram.webhook", true)

	// 文件存储默认配置
	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.artifact_path", "./GTracker-1.0-release.apk")
	v.SetDefault("storage.public_dir", "./public")
	v.SetDefault("storage.max_upload_mb", 10)

	// 仓储默认配置
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.ttl", 0)
	v.SetDefault("store.max_entries", 0)

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "gcash-buy.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "gcash_buy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600) // 1 小时

	// 通知默认配置
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue_size", 100)
	v.SetDefault("notify.max_retries", 3)

	// CORS 默认配置
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 86400)

	// 日志配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("log.level", "info")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
}
