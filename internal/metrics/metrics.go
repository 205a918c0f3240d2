package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 收据提交数
	submissionsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of receipt submissions created",
		},
		[]string{"mode"}, // auto, manual
	)

	// 审核决策数
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Total number of admin decisions",
		},
		[]string{"action", "result"}, // result: applied, duplicate, not_found
	)

	// 管理员通知投递结果
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of admin notifications by outcome",
		},
		[]string{"result"}, // sent, failed, dropped
	)

	// 下载请求结果
	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downloads_total",
			Help: "Total number of gated downloads by outcome",
		},
		[]string{"result"}, // served, denied, missing
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 提交记录状态分布
	submissionsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "submissions_by_status",
			Help: "Number of submissions by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(submissionsCreatedTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(downloadsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(submissionsByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordSubmission 记录收据提交
func RecordSubmission(autoApproved bool) {
	mode := "manual"
	if autoApproved {
		mode = "auto"
	}
	submissionsCreatedTotal.WithLabelValues(mode).Inc()
}

// RecordDecision 记录审核决策
func RecordDecision(action, result string) {
	decisionsTotal.WithLabelValues(action, result).Inc()
}

// RecordNotification 记录通知投递结果
func RecordNotification(result string) {
	notificationsTotal.WithLabelValues(result).Inc()
}

// RecordDownload 记录下载结果
func RecordDownload(result string) {
	downloadsTotal.WithLabelValues(result).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))

	return nil
}

// UpdateSubmissionsByStatus 更新状态分布指标
func UpdateSubmissionsByStatus(status string, count float64) {
	submissionsByStatus.WithLabelValues(status).Set(count)
}
