// API server entry point for DTI-Insight.
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

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	"github.com/turtacn/DTI-Insight/internal/config"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/intelligence/structure"
	httpserver "github.com/turtacn/DTI-Insight/internal/interfaces/http"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/handlers"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: configs/config.yaml when present)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.Error("apiserver stopped with error", logging.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads path when given, then configs/config.yaml, then the
// environment alone.
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

func run(ctx context.Context, cfg *config.Config, configPath string, logger logging.Logger) error {
	logger.Info("starting DTI-Insight API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate),
		logging.String("addr", cfg.Server.Addr()))

	if configPath != "" {
		watchLogLevel(configPath, logger)
	}

	collector, metrics, err := newMetrics(cfg, logger)
	if err != nil {
		return err
	}

	infra, err := newInfrastructure(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer infra.Close()

	handle := structure.NewDefaultCapabilityHandle(
		structure.WithHandleLogger(logger),
		structure.WithHandleMetrics(metrics))

	svc := board.NewService(handle, board.Config{
		Width:          cfg.Render.Width,
		Height:         cfg.Render.Height,
		Theme:          cfg.Render.Theme,
		Concurrency:    cfg.Render.Concurrency,
		AcquireTimeout: cfg.Render.AcquireTimeout,
	}, infra.boardOptions(cfg, logger, metrics)...)

	boardOpts := []handlers.BoardOption{
		handlers.WithLogger(logger),
		handlers.WithMaxBodySize(cfg.Server.MaxBodySize),
	}
	if p, err := newPredictor(cfg, infra.cache, logger, metrics); err != nil {
		return err
	} else if p != nil {
		boardOpts = append(boardOpts, handlers.WithPredictor(p))
	} else {
		logger.Warn("prediction backend not configured; POST /api/v1/predict is disabled")
	}
	if infra.exportStore != nil {
		exporterOpts := []reporting.ExporterOption{
			reporting.WithExportLogger(logger),
			reporting.WithExportMetrics(metrics),
		}
		if infra.producer != nil {
			exporterOpts = append(exporterOpts, reporting.WithExportPublisher(infra.producer, cfg.Kafka.Topics.BoardExported))
		}
		boardOpts = append(boardOpts, handlers.WithExporter(reporting.NewExporter(infra.exportStore, exporterOpts...)))
	}

	rl := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
	defer limiter.Stop()

	var cors *middleware.CORSConfig
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		c := middleware.DefaultCORSConfig()
		c.AllowedOrigins = cfg.Server.CORSAllowedOrigins
		cors = &c
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		BoardHandler:     handlers.NewBoardHandler(svc, boardOpts...),
		StructureHandler: handlers.NewStructureHandler(svc, logger),
		HealthHandler:    handlers.NewHealthHandler(version, metrics, infra.checkers...),
		CORS:             cors,
		Logging:          middleware.DefaultLoggingConfig(),
		PredictLimiter:   limiter,
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Monitoring.Prometheus.Path,
	})

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("API server stopped")
	return nil
}

// newMetrics returns a live collector when Prometheus is enabled and a
// no-op one otherwise.
func newMetrics(cfg *config.Config, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.BoardMetrics, error) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return nil, prometheus.NewNoopBoardMetrics(), nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Monitoring.Prometheus.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}
	return collector, prometheus.NewBoardMetrics(collector), nil
}

// watchLogLevel applies log level changes from configPath without a restart.
func watchLogLevel(configPath string, logger logging.Logger) {
	err := config.Watch(configPath, func(c *config.Config) {
		if logging.SetLevel(logger, c.Log.Level) {
			logger.Info("log level updated", logging.String("level", c.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("configuration watch disabled", logging.Err(err))
	}
}

//Personal.AI order the ending
