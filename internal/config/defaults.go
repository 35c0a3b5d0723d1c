package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost        = "0.0.0.0"
	DefaultServerPort        = 8080
	DefaultMaxBodySize int64 = 4 << 20

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "dti:"
	DefaultRedisTTL       = 24 * time.Hour

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "dti-worker"

	TopicPredictionCompleted = "dti.prediction.completed"
	TopicStructureRendered   = "dti.structure.rendered"
	TopicBoardExported       = "dti.board.exported"

	DefaultMinIOEndpoint   = "localhost:9000"
	DefaultStructureBucket = "dti-structures"
	DefaultExportBucket    = "dti-exports"

	DefaultPredictionTimeout = 60 * time.Second

	DefaultRenderWidth       = 280
	DefaultRenderHeight      = 200
	DefaultRenderTheme       = "dark"
	DefaultRenderConcurrency = 4

	DefaultWorkerConcurrency = 4
	DefaultWorkerHealthPort  = 8081

	DefaultMetricsNamespace = "dti"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the default. Fields
// already set by the caller are left unchanged so explicit configuration always
// wins. Booleans cannot be told apart from "unset" here; their defaults are
// registered on the viper instance instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = "dti-insight"
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.Kafka.Topics.PredictionCompleted == "" {
		cfg.Kafka.Topics.PredictionCompleted = TopicPredictionCompleted
	}
	if cfg.Kafka.Topics.StructureRendered == "" {
		cfg.Kafka.Topics.StructureRendered = TopicStructureRendered
	}
	if cfg.Kafka.Topics.BoardExported == "" {
		cfg.Kafka.Topics.BoardExported = TopicBoardExported
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = "us-east-1"
	}
	if cfg.MinIO.StructureBucket == "" {
		cfg.MinIO.StructureBucket = DefaultStructureBucket
	}
	if cfg.MinIO.ExportBucket == "" {
		cfg.MinIO.ExportBucket = DefaultExportBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 15 * time.Minute
	}

	// ── Prediction ────────────────────────────────────────────────────────────
	if cfg.Prediction.Timeout == 0 {
		cfg.Prediction.Timeout = DefaultPredictionTimeout
	}
	if cfg.Prediction.MaxRetries == 0 {
		cfg.Prediction.MaxRetries = 2
	}
	if cfg.Prediction.RetryBackoff == 0 {
		cfg.Prediction.RetryBackoff = 500 * time.Millisecond
	}

	// ── Render ────────────────────────────────────────────────────────────────
	if cfg.Render.Width == 0 {
		cfg.Render.Width = DefaultRenderWidth
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = DefaultRenderHeight
	}
	if cfg.Render.Theme == "" {
		cfg.Render.Theme = DefaultRenderTheme
	}
	if cfg.Render.Concurrency == 0 {
		cfg.Render.Concurrency = DefaultRenderConcurrency
	}
	if cfg.Render.CacheTTL == 0 {
		cfg.Render.CacheTTL = DefaultRedisTTL
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
	if cfg.Worker.ShutdownTimeout == 0 {
		cfg.Worker.ShutdownTimeout = 30 * time.Second
	}

	// ── Monitoring ────────────────────────────────────────────────────────────
	if cfg.Monitoring.Prometheus.Namespace == "" {
		cfg.Monitoring.Prometheus.Namespace = DefaultMetricsNamespace
	}
	if cfg.Monitoring.Prometheus.Path == "" {
		cfg.Monitoring.Prometheus.Path = DefaultMetricsPath
	}
}

// registerDefaults seeds v with the default of every key. Viper only binds
// environment variables for keys it already knows, so this also makes every
// field overridable through DTI_* variables without a config file.
func registerDefaults(v *viper.Viper) {
	d := &Config{}
	ApplyDefaults(d)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.cors_allowed_origins", d.Server.CORSAllowedOrigins)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.default_ttl", d.Redis.DefaultTTL)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.auto_offset_reset", d.Kafka.AutoOffsetReset)
	v.SetDefault("kafka.max_retries", d.Kafka.MaxRetries)
	v.SetDefault("kafka.retry_backoff", d.Kafka.RetryBackoff)
	v.SetDefault("kafka.enable_dlq", true)
	v.SetDefault("kafka.ensure_topics", true)
	v.SetDefault("kafka.topics.prediction_completed", d.Kafka.Topics.PredictionCompleted)
	v.SetDefault("kafka.topics.structure_rendered", d.Kafka.Topics.StructureRendered)
	v.SetDefault("kafka.topics.board_exported", d.Kafka.Topics.BoardExported)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.structure_bucket", d.MinIO.StructureBucket)
	v.SetDefault("minio.export_bucket", d.MinIO.ExportBucket)

	v.SetDefault("prediction.base_url", "")
	v.SetDefault("prediction.api_key", "")
	v.SetDefault("prediction.timeout", d.Prediction.Timeout)
	v.SetDefault("prediction.max_retries", d.Prediction.MaxRetries)
	v.SetDefault("prediction.cache_ttl", time.Duration(0))

	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("render.height", d.Render.Height)
	v.SetDefault("render.theme", d.Render.Theme)
	v.SetDefault("render.concurrency", d.Render.Concurrency)
	v.SetDefault("render.acquire_timeout", time.Duration(0))
	v.SetDefault("render.cache_ttl", d.Render.CacheTTL)

	v.SetDefault("board.cache_diagrams", true)
	v.SetDefault("board.archive_diagrams", false)
	v.SetDefault("board.publish_events", false)

	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.health_port", d.Worker.HealthPort)
	v.SetDefault("worker.shutdown_timeout", d.Worker.ShutdownTimeout)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.namespace", d.Monitoring.Prometheus.Namespace)
	v.SetDefault("monitoring.prometheus.path", d.Monitoring.Prometheus.Path)
}

//Personal.AI order the ending
