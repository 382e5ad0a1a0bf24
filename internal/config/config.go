// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment
// variables. Field names follow spec.md §6's configuration table; the rest
// are ambient ops settings carried the way the teacher carries them.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// REDIS_URL is the cache pool's (C1) transport endpoint.
	RedisURL         string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	CacheMaxConns    int    `env:"CACHE_MAX_CONNECTIONS" envDefault:"20"`
	CacheRetryOnTimeout bool `env:"CACHE_RETRY_ON_TIMEOUT" envDefault:"true"`
	CacheHealthCheckInterval time.Duration `env:"CACHE_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	CacheCompressionThreshold int `env:"CACHE_COMPRESSION_THRESHOLD_BYTES" envDefault:"1024"`

	// Optional durable persistence store (external collaborator, §1); used
	// only for the readiness check and as the concrete PersistenceClient
	// wired into handler deps.
	DBURL string `env:"DB_URL" envDefault:""`

	// Optional Kafka/Redpanda brokers for the event bus's outbound mirror
	// to the external marketing-analytics collaborator. Empty disables it.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Abandoned-cart coordinator (C11) tunables.
	AbandonedCartTimeoutMinutes  int     `env:"ABANDONED_CART_TIMEOUT_MINUTES" envDefault:"30"`
	MinimumCartValueForFollowup float64 `env:"MINIMUM_CART_VALUE_FOR_FOLLOWUP" envDefault:"5000"`
	FollowUpEmailDelayMinutes    int     `env:"FOLLOW_UP_EMAIL_DELAY_MINUTES" envDefault:"30"`
	FollowUpSMSDelayHours        int     `env:"FOLLOW_UP_SMS_DELAY_HOURS" envDefault:"2"`

	// TESTING enables in-memory stubs for persistence (§6).
	Testing bool `env:"TESTING" envDefault:"false"`

	// Rate limiter defaults (C3).
	RateLimitIPMax     int64         `env:"RATE_LIMIT_IP_MAX" envDefault:"100"`
	RateLimitIPWindow  time.Duration `env:"RATE_LIMIT_IP_WINDOW" envDefault:"60s"`
	RateLimitUserMax    int64         `env:"RATE_LIMIT_USER_MAX" envDefault:"50"`
	RateLimitUserWindow time.Duration `env:"RATE_LIMIT_USER_WINDOW" envDefault:"60s"`

	// Router (C7).
	RouterHandlerTimeout time.Duration `env:"ROUTER_HANDLER_TIMEOUT" envDefault:"30s"`

	// Event bus (C9).
	EventBusQueueCapacity int `env:"EVENT_BUS_QUEUE_CAPACITY" envDefault:"10000"`

	// Conflict resolver (C10). ConflictHistoryLimit is loaded but not read:
	// the resolver's history cap is fixed at 10,000 in internal/conflict.
	ConflictHistoryLimit   int `env:"CONFLICT_HISTORY_LIMIT" envDefault:"10000"`
	ConflictAlertThreshold int `env:"CONFLICT_ALERT_THRESHOLD" envDefault:"5"`

	// Scheduler job-run history ring (C8, §4.8) — independent of the
	// conflict resolver's own history cap.
	JobHistoryLimit int `env:"JOB_HISTORY_LIMIT" envDefault:"1000"`

	// Audit logger (C12).
	AuditBufferSize int `env:"AUDIT_BUFFER_SIZE" envDefault:"4096"`

	// Shutdown/ops.
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"5s"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	CORSAllowOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	AdminRateLimitPerMin int          `env:"ADMIN_RATE_LIMIT_PER_MIN" envDefault:"30"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"chatbuddy-core"`

	// Job scheduler (C8) intervals and retry policy. The four webshop sync
	// jobs share one interval/retry policy; AbandonedCartDetect and Cleanup
	// run on their own schedules per §4.11.
	JobSyncInterval           time.Duration `env:"JOB_SYNC_INTERVAL" envDefault:"15m"`
	JobFullSyncInterval       time.Duration `env:"JOB_FULL_SYNC_INTERVAL" envDefault:"1h"`
	JobAbandonedCartInterval  time.Duration `env:"JOB_ABANDONED_CART_INTERVAL" envDefault:"15m"`
	JobCleanupInterval        time.Duration `env:"JOB_CLEANUP_INTERVAL" envDefault:"24h"`
	JobRetryCount             int           `env:"JOB_RETRY_COUNT" envDefault:"3"`
	JobRetryDelay             time.Duration `env:"JOB_RETRY_DELAY" envDefault:"10s"`
	JobMaxExecution           time.Duration `env:"JOB_MAX_EXECUTION" envDefault:"5m"`
	JobProductSyncEnabled     bool          `env:"JOB_PRODUCT_SYNC_ENABLED" envDefault:"false"`
	JobInventorySyncEnabled   bool          `env:"JOB_INVENTORY_SYNC_ENABLED" envDefault:"false"`
	JobPriceSyncEnabled       bool          `env:"JOB_PRICE_SYNC_ENABLED" envDefault:"false"`
	JobOrderSyncEnabled       bool          `env:"JOB_ORDER_SYNC_ENABLED" envDefault:"false"`
	JobFullSyncEnabled        bool          `env:"JOB_FULL_SYNC_ENABLED" envDefault:"false"`
	JobAbandonedCartEnabled   bool          `env:"JOB_ABANDONED_CART_ENABLED" envDefault:"true"`
	JobCleanupEnabled         bool          `env:"JOB_CLEANUP_ENABLED" envDefault:"true"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" || c.Testing }
