package prometheus

import (
	"strconv"
	"time"
)

// BoardMetrics holds every metric the board, renderer and transports emit.
type BoardMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Board Layer
	BoardPassesTotal           CounterVec
	BoardPassDuration          HistogramVec
	CandidatesByClassification CounterVec
	PredictionRequestsTotal    CounterVec
	PredictionDuration         HistogramVec

	// Structure Layer
	RenderOutcomesTotal         CounterVec
	RenderDuration              HistogramVec
	RenderSupersededTotal       CounterVec
	CapabilityAcquisitionsTotal CounterVec
	RenderInFlight              GaugeVec

	// Export Layer
	ExportsTotal   CounterVec
	ExportDuration HistogramVec

	// Infrastructure Layer
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesPublishedTotal CounterVec
	MessagesConsumedTotal  CounterVec
	MessageProcessDuration HistogramVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRenderDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultRemoteDurationBuckets = []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60}
)

// NewBoardMetrics registers all metrics and returns the BoardMetrics struct.
func NewBoardMetrics(collector MetricsCollector) *BoardMetrics {
	m := &BoardMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Board
	m.BoardPassesTotal = collector.RegisterCounter("board_passes_total", "Board evaluation passes", "source", "status")
	m.BoardPassDuration = collector.RegisterHistogram("board_pass_duration_seconds", "Board pass duration", DefaultHTTPDurationBuckets, "source")
	m.CandidatesByClassification = collector.RegisterCounter("board_candidates_total", "Candidates evaluated by rule classification", "classification")
	m.PredictionRequestsTotal = collector.RegisterCounter("prediction_requests_total", "Prediction backend requests", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Prediction backend latency", DefaultRemoteDurationBuckets)

	// Structure
	m.RenderOutcomesTotal = collector.RegisterCounter("render_outcomes_total", "Structure render outcomes", "phase", "attempt", "reason")
	m.RenderDuration = collector.RegisterHistogram("render_duration_seconds", "Structure render duration", DefaultRenderDurationBuckets, "phase")
	m.RenderSupersededTotal = collector.RegisterCounter("render_superseded_total", "Render results discarded by a newer request")
	m.CapabilityAcquisitionsTotal = collector.RegisterCounter("render_capability_acquisitions_total", "Drawing capability acquisition attempts", "result")
	m.RenderInFlight = collector.RegisterGauge("render_in_flight", "Renders currently running")

	// Export
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Board exports", "kind", "status")
	m.ExportDuration = collector.RegisterHistogram("export_duration_seconds", "Board export duration", DefaultRemoteDurationBuckets, "kind")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesPublishedTotal = collector.RegisterCounter("mq_published_total", "Messages published", "topic", "status")
	m.MessagesConsumedTotal = collector.RegisterCounter("mq_consumed_total", "Messages consumed", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// NewNoopBoardMetrics returns metrics that record nothing.
func NewNoopBoardMetrics() *BoardMetrics {
	return NewBoardMetrics(NewNoopCollector())
}

// Helpers. All of them accept a nil *BoardMetrics.

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func RecordHTTPRequest(m *BoardMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordBoardPass(m *BoardMetrics, source string, ok bool, duration time.Duration, classifications []string) {
	if m == nil {
		return
	}
	m.BoardPassesTotal.WithLabelValues(source, statusLabel(ok)).Inc()
	m.BoardPassDuration.WithLabelValues(source).Observe(duration.Seconds())
	for _, c := range classifications {
		m.CandidatesByClassification.WithLabelValues(c).Inc()
	}
}

func RecordPrediction(m *BoardMetrics, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.PredictionRequestsTotal.WithLabelValues(statusLabel(ok)).Inc()
	m.PredictionDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordRender(m *BoardMetrics, phase, attempt, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RenderOutcomesTotal.WithLabelValues(phase, attempt, reason).Inc()
	m.RenderDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func RecordRenderSuperseded(m *BoardMetrics) {
	if m == nil {
		return
	}
	m.RenderSupersededTotal.WithLabelValues().Inc()
}

func RecordCapabilityAcquisition(m *BoardMetrics, ok bool) {
	if m == nil {
		return
	}
	m.CapabilityAcquisitionsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

func RecordExport(m *BoardMetrics, kind string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(kind, statusLabel(ok)).Inc()
	m.ExportDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordCacheAccess(m *BoardMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordPublish(m *BoardMetrics, topic string, ok bool) {
	if m == nil {
		return
	}
	m.MessagesPublishedTotal.WithLabelValues(topic, statusLabel(ok)).Inc()
}

func RecordConsume(m *BoardMetrics, topic string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.MessagesConsumedTotal.WithLabelValues(topic, statusLabel(ok)).Inc()
	m.MessageProcessDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

func RecordHealth(m *BoardMetrics, component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(m *BoardMetrics, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
