package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/handlers"
	"github.com/turtacn/DTI-Insight/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
type RouterConfig struct {
	BoardHandler     *handlers.BoardHandler
	StructureHandler *handlers.StructureHandler
	HealthHandler    *handlers.HealthHandler

	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig
	// PredictLimiter throttles POST /predict; nil disables throttling.
	PredictLimiter middleware.RateLimiter

	Logger           logging.Logger
	Metrics          *prometheus.BoardMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger, cfg.Metrics))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Metrics, cfg.Logging))

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerBoardRoutes(api, cfg.BoardHandler, cfg.PredictLimiter)
		registerStructureRoutes(api, cfg.StructureHandler)
	})
	return r
}

func registerBoardRoutes(r chi.Router, h *handlers.BoardHandler, limiter middleware.RateLimiter) {
	if h == nil {
		return
	}
	r.Post("/board", h.Compose)
	r.Post("/board/export", h.Export)
	r.Get("/board/export/{passId}", h.Exported)
	r.Post("/rules/evaluate", h.Evaluate)
	r.Post("/compare", h.Compare)
	r.Get("/samples/egfr", h.Sample)

	if limiter != nil {
		r.With(middleware.RateLimit(limiter, middleware.RateLimitConfig{})).Post("/predict", h.Predict)
	} else {
		r.Post("/predict", h.Predict)
	}
}

func registerStructureRoutes(r chi.Router, h *handlers.StructureHandler) {
	if h == nil {
		return
	}
	r.Get("/structures/render", h.Render)
}

//Personal.AI order the ending
