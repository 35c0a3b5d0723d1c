// Package config defines the configuration structures of DTI-Insight. No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize        int64         `mapstructure:"max_body_size"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds Redis connection parameters for the diagram cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaTopics names every topic the board reads or writes.
type KafkaTopics struct {
	PredictionCompleted string `mapstructure:"prediction_completed"`
	StructureRendered   string `mapstructure:"structure_rendered"`
	BoardExported       string `mapstructure:"board_exported"`
}

// KafkaConfig holds producer and consumer parameters.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	ClientID        string        `mapstructure:"client_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	EnableDLQ       bool          `mapstructure:"enable_dlq"`
	EnsureTopics    bool          `mapstructure:"ensure_topics"` // worker creates missing topics on start
	Topics          KafkaTopics   `mapstructure:"topics"`
}

// MinIOConfig holds object-storage parameters for diagram and export archives.
type MinIOConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKey       string        `mapstructure:"access_key"`
	SecretKey       string        `mapstructure:"secret_key"`
	Region          string        `mapstructure:"region"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	StructureBucket string        `mapstructure:"structure_bucket"`
	ExportBucket    string        `mapstructure:"export_bucket"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// PredictionConfig points at the drug-discovery prediction backend.
type PredictionConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// CacheTTL keeps backend responses in Redis per sequence; zero disables.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RenderConfig holds structure-diagram parameters.
type RenderConfig struct {
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	Theme       string `mapstructure:"theme"`
	Concurrency int    `mapstructure:"concurrency"`
	// AcquireTimeout bounds capability acquisition; zero waits forever.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// BoardConfig toggles the side effects of a board pass.
type BoardConfig struct {
	CacheDiagrams   bool `mapstructure:"cache_diagrams"`
	ArchiveDiagrams bool `mapstructure:"archive_diagrams"`
	PublishEvents   bool `mapstructure:"publish_events"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	HealthPort      int           `mapstructure:"health_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PrometheusConfig holds metrics exposition parameters.
type PrometheusConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// MonitoringConfig groups observability settings.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        logging.LogConfig `mapstructure:"log"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	MinIO      MinIOConfig       `mapstructure:"minio"`
	Prediction PredictionConfig  `mapstructure:"prediction"`
	Render     RenderConfig      `mapstructure:"render"`
	Board      BoardConfig       `mapstructure:"board"`
	Worker     WorkerConfig      `mapstructure:"worker"`
	Monitoring MonitoringConfig  `mapstructure:"monitoring"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxBodySize < 0 {
		return fmt.Errorf("config: server.max_body_size must be ≥ 0, got %d", c.Server.MaxBodySize)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		switch c.Kafka.AutoOffsetReset {
		case "earliest", "latest":
		default:
			return fmt.Errorf("config: kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
		}
	}
	if c.Kafka.MaxRetries < 0 {
		return fmt.Errorf("config: kafka.max_retries must be ≥ 0, got %d", c.Kafka.MaxRetries)
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.StructureBucket == "" || c.MinIO.ExportBucket == "" {
			return fmt.Errorf("config: minio.structure_bucket and minio.export_bucket are required")
		}
	}

	// Prediction
	if c.Prediction.BaseURL != "" {
		u, err := url.Parse(c.Prediction.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: prediction.base_url %q is not an absolute URL", c.Prediction.BaseURL)
		}
	}
	if c.Prediction.MaxRetries < 0 {
		return fmt.Errorf("config: prediction.max_retries must be ≥ 0, got %d", c.Prediction.MaxRetries)
	}

	// Render
	if c.Render.Width < 1 || c.Render.Height < 1 {
		return fmt.Errorf("config: render.width and render.height must be ≥ 1, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.Theme != "dark" {
		return fmt.Errorf("config: render.theme %q is invalid; expected dark", c.Render.Theme)
	}
	if c.Render.Concurrency < 1 {
		return fmt.Errorf("config: render.concurrency must be ≥ 1, got %d", c.Render.Concurrency)
	}
	if c.Render.AcquireTimeout < 0 {
		return fmt.Errorf("config: render.acquire_timeout must be ≥ 0, got %s", c.Render.AcquireTimeout)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.HealthPort < 1 || c.Worker.HealthPort > 65535 {
		return fmt.Errorf("config: worker.health_port %d is out of range [1, 65535]", c.Worker.HealthPort)
	}

	// Monitoring
	if c.Monitoring.Prometheus.Enabled && c.Monitoring.Prometheus.Namespace == "" {
		return fmt.Errorf("config: monitoring.prometheus.namespace is required when prometheus is enabled")
	}

	return nil
}

//Personal.AI order the ending
