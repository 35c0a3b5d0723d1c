package main

import (
	"context"
	"fmt"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/config"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/prediction"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/storage/minio"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/handlers"
)

// infrastructure holds the optional backing services of the API server.
type infrastructure struct {
	redis    *redis.Client
	minio    *minio.Client
	producer *kafka.Producer

	cache        redis.Cache
	diagramCache *redis.DiagramCache
	archive      *minio.DiagramArchive
	exportStore  *minio.BucketStore
	checkers     []handlers.HealthChecker
}

// newInfrastructure connects every enabled backing service. A disabled
// service leaves its fields nil and the board runs without it.
func newInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.BoardMetrics) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(&redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.redis = rc
		infra.cache = redis.NewRedisCache(rc, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redis.WithTTLJitter(true))
		infra.diagramCache = redis.NewDiagramCache(infra.cache, cfg.Render.CacheTTL)
		infra.checkers = append(infra.checkers, rc)
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(ctx, minio.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKey:       cfg.MinIO.AccessKey,
			SecretKey:       cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Region:          cfg.MinIO.Region,
			StructureBucket: cfg.MinIO.StructureBucket,
			ExportBucket:    cfg.MinIO.ExportBucket,
			PresignExpiry:   cfg.MinIO.PresignExpiry,
		}, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.minio = mc
		repo := minio.NewRepository(mc, logger)
		infra.archive = minio.NewDiagramArchive(repo, mc.StructureBucket())
		infra.exportStore = minio.NewBucketStore(repo, mc.ExportBucket())
		infra.checkers = append(infra.checkers, mc)
	}

	if cfg.Kafka.Enabled && cfg.Board.PublishEvents {
		p, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			ClientID:     cfg.Kafka.ClientID,
			Source:       "dti-apiserver",
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, metrics)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		infra.producer = p
	}

	logger.Info("infrastructure initialized",
		logging.Bool("redis", infra.redis != nil),
		logging.Bool("minio", infra.minio != nil),
		logging.Bool("kafka", infra.producer != nil))
	return infra, nil
}

// boardOptions wires the enabled services into the board service.
func (i *infrastructure) boardOptions(cfg *config.Config, logger logging.Logger, metrics *prometheus.BoardMetrics) []board.Option {
	opts := []board.Option{board.WithLogger(logger), board.WithMetrics(metrics)}
	if i.diagramCache != nil && cfg.Board.CacheDiagrams {
		opts = append(opts, board.WithCache(i.diagramCache))
	}
	if i.archive != nil && cfg.Board.ArchiveDiagrams {
		opts = append(opts, board.WithArchive(i.archive))
	}
	if i.producer != nil {
		opts = append(opts, board.WithPublisher(i.producer, cfg.Kafka.Topics.StructureRendered))
	}
	return opts
}

func (i *infrastructure) Close() {
	if i.producer != nil {
		_ = i.producer.Close()
	}
	if i.minio != nil {
		_ = i.minio.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

// newPredictor returns nil when no backend URL is configured. Responses are
// cached per sequence when Redis is up and prediction.cache_ttl is set.
func newPredictor(cfg *config.Config, cache redis.Cache, logger logging.Logger, metrics *prometheus.BoardMetrics) (prediction.Predictor, error) {
	if cfg.Prediction.BaseURL == "" {
		return nil, nil
	}
	c, err := prediction.NewClient(prediction.Config{
		BaseURL:      cfg.Prediction.BaseURL,
		APIKey:       cfg.Prediction.APIKey,
		Timeout:      cfg.Prediction.Timeout,
		MaxRetries:   cfg.Prediction.MaxRetries,
		RetryBackoff: cfg.Prediction.RetryBackoff,
	}, prediction.WithLogger(logger), prediction.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("prediction client: %w", err)
	}
	if cache != nil && cfg.Prediction.CacheTTL > 0 {
		return prediction.NewCachingPredictor(c, cache, cfg.Prediction.CacheTTL, logger, metrics), nil
	}
	return c, nil
}
