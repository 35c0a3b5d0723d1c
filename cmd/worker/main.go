// Background worker entry point for DTI-Insight. It consumes
// prediction.completed events, composes a board for each one and publishes
// the per-candidate structure.rendered events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	"github.com/turtacn/DTI-Insight/internal/config"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/storage/minio"
	"github.com/turtacn/DTI-Insight/internal/intelligence/structure"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/handlers"
	"github.com/turtacn/DTI-Insight/internal/interfaces/messaging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: configs/config.yaml when present)")
	export := flag.Bool("export", false, "upload every composed board to the export bucket")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *export, logger); err != nil {
		logger.Error("worker stopped with error", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(config.WithConfigPath(path))
	}
	cfg, err := config.Load(config.WithSearchPaths("configs", "."))
	if errors.Is(err, config.ErrConfigFileNotFound) {
		return config.LoadFromEnv()
	}
	return cfg, err
}

func run(ctx context.Context, cfg *config.Config, export bool, logger logging.Logger) error {
	if !cfg.Kafka.Enabled {
		return errors.New("kafka.enabled must be true for the worker")
	}
	logger.Info("starting DTI-Insight worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.Topics.PredictionCompleted))

	var (
		collector prometheus.MetricsCollector
		metrics   = prometheus.NewNoopBoardMetrics()
	)
	if cfg.Monitoring.Prometheus.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Monitoring.Prometheus.Namespace,
			Subsystem:            "worker",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector, metrics = c, prometheus.NewBoardMetrics(c)
	}

	if cfg.Kafka.EnsureTopics {
		if err := ensureTopics(ctx, cfg, logger); err != nil {
			return err
		}
	}

	infra, err := initWorkerInfrastructure(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer infra.Close()

	boardOpts := []board.Option{
		board.WithLogger(logger),
		board.WithMetrics(metrics),
		board.WithPublisher(infra.producer, cfg.Kafka.Topics.StructureRendered),
	}
	if infra.redis != nil && cfg.Board.CacheDiagrams {
		cache := redis.NewRedisCache(infra.redis, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redis.WithTTLJitter(true))
		boardOpts = append(boardOpts, board.WithCache(redis.NewDiagramCache(cache, cfg.Render.CacheTTL)))
	}
	if infra.repo != nil && cfg.Board.ArchiveDiagrams {
		boardOpts = append(boardOpts, board.WithArchive(minio.NewDiagramArchive(infra.repo, infra.minio.StructureBucket())))
	}

	handle := structure.NewDefaultCapabilityHandle(
		structure.WithHandleLogger(logger),
		structure.WithHandleMetrics(metrics))
	svc := board.NewService(handle, board.Config{
		Width:          cfg.Render.Width,
		Height:         cfg.Render.Height,
		Theme:          cfg.Render.Theme,
		Concurrency:    cfg.Worker.Concurrency,
		AcquireTimeout: cfg.Render.AcquireTimeout,
	}, boardOpts...)

	handlerOpts := []messaging.HandlerOption{messaging.WithLogger(logger)}
	if infra.redis != nil {
		handlerOpts = append(handlerOpts,
			messaging.WithLocks(redis.NewLockFactory(infra.redis, cfg.Redis.KeyPrefix, logger), messaging.DefaultLockTTL))
	}
	if export {
		if infra.repo == nil {
			return errors.New("-export requires minio.enabled")
		}
		exporter := reporting.NewExporter(minio.NewBucketStore(infra.repo, infra.minio.ExportBucket()),
			reporting.WithExportLogger(logger),
			reporting.WithExportMetrics(metrics),
			reporting.WithExportPublisher(infra.producer, cfg.Kafka.Topics.BoardExported))
		handlerOpts = append(handlerOpts, messaging.WithExporter(exporter))
	}
	handler := messaging.NewPredictionHandler(svc, handlerOpts...)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{cfg.Kafka.Topics.PredictionCompleted},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:       cfg.Kafka.MaxRetries,
			RetryBackoff:     cfg.Kafka.RetryBackoff,
			EnableDeadLetter: cfg.Kafka.EnableDLQ,
		},
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()
	if err := consumer.Subscribe(cfg.Kafka.Topics.PredictionCompleted, handler.Handle); err != nil {
		return err
	}

	healthSrv := startHealthServer(cfg, collector, metrics, infra.checkers, logger)

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	logger.Info("worker started")

	<-ctx.Done()
	logger.Info("received shutdown signal, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}
	logger.Info("DTI-Insight worker stopped")
	return nil
}

// ensureTopics creates the configured board topics and their dead letter
// topics when the broker lacks them.
func ensureTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	defer tm.Close()

	t := cfg.Kafka.Topics
	created, err := tm.EnsureTopics(ctx, kafka.BoardTopics(t.PredictionCompleted, t.StructureRendered, t.BoardExported))
	if err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	logger.Info("kafka topics ready", logging.Int("created", len(created)))
	return nil
}

// workerInfrastructure holds infrastructure clients for the worker process.
type workerInfrastructure struct {
	redis    *redis.Client
	minio    *minio.Client
	repo     minio.ObjectRepository
	producer *kafka.Producer
	checkers []handlers.HealthChecker
}

func (w *workerInfrastructure) Close() {
	if w.producer != nil {
		_ = w.producer.Close()
	}
	if w.minio != nil {
		_ = w.minio.Close()
	}
	if w.redis != nil {
		_ = w.redis.Close()
	}
}

func initWorkerInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.BoardMetrics) (*workerInfrastructure, error) {
	infra := &workerInfrastructure{}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		ClientID:     cfg.Kafka.ClientID,
		Source:       "dti-worker",
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	infra.producer = producer

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
		}, logger)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.minio = mc
		infra.repo = minio.NewRepository(mc, logger)
		infra.checkers = append(infra.checkers, mc)
	}

	logger.Info("worker infrastructure initialized")
	return infra, nil
}

// startHealthServer exposes liveness, readiness and metrics on the worker
// health port.
func startHealthServer(cfg *config.Config, collector prometheus.MetricsCollector, metrics *prometheus.BoardMetrics, checkers []handlers.HealthChecker, logger logging.Logger) *http.Server {
	health := handlers.NewHealthHandler(version, metrics, checkers...)

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	if collector != nil {
		r.Handle(cfg.Monitoring.Prometheus.Path, collector.Handler())
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler: r,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", cfg.Worker.HealthPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}

//Personal.AI order the ending
