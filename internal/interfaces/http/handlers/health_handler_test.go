package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                    { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

// blockingChecker answers only when its context ends.
type blockingChecker struct{ name string }

func (c blockingChecker) Name() string { return c.name }
func (c blockingChecker) Check(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func newRedisChecker(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := redis.NewClient(&redis.Config{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func newHealthMetrics(t *testing.T) (*prometheus.BoardMetrics, prometheus.MetricsCollector) {
	t.Helper()
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "dti", Subsystem: "api"}, logging.NewNopLogger())
	require.NoError(t, err)
	return prometheus.NewBoardMetrics(c), c
}

func readiness(t *testing.T, h *HealthHandler) (int, ReadinessResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestLiveness_ReportsVersion(t *testing.T) {
	_, rc := newRedisChecker(t)
	h := NewHealthHandler("1.2.3", nil, rc, stubChecker{name: "minio", err: fmt.Errorf("no route")})
	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestReadiness_NoDependencies(t *testing.T) {
	code, resp := readiness(t, NewHealthHandler("dev", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
	assert.Empty(t, resp.Components)
}

func TestReadiness_RedisAndMinIOHealthy(t *testing.T) {
	_, rc := newRedisChecker(t)
	code, resp := readiness(t, NewHealthHandler("dev", nil, rc, stubChecker{name: "minio"}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.NotEmpty(t, resp.Components["redis"].Latency)
	assert.Equal(t, "healthy", resp.Components["minio"].Status)
}

func TestReadiness_UnhealthyMinIO(t *testing.T) {
	_, rc := newRedisChecker(t)
	metrics, collector := newHealthMetrics(t)
	h := NewHealthHandler("dev", metrics, rc, stubChecker{name: "minio", err: fmt.Errorf("no route")})

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.Equal(t, "unhealthy", resp.Components["minio"].Status)
	assert.Equal(t, "no route", resp.Components["minio"].Error)

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dti_api_health_check_status{component="minio"} 0`)
	assert.Contains(t, string(body), `dti_api_health_check_status{component="redis"} 1`)
}

func TestReadiness_RedisGoesAway(t *testing.T) {
	mr, rc := newRedisChecker(t)
	h := NewHealthHandler("dev", nil, rc)

	code, _ := readiness(t, h)
	require.Equal(t, http.StatusOK, code)

	mr.Close()
	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Components["redis"].Status)
	assert.NotEmpty(t, resp.Components["redis"].Error)
}

func TestReadiness_SlowCheckerTimesOut(t *testing.T) {
	h := NewHealthHandler("dev", nil, blockingChecker{name: "minio"})
	h.timeout = 20 * time.Millisecond

	start := time.Now()
	code, resp := readiness(t, h)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Components["minio"].Error)
}
