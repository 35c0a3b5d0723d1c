package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
log:
  level: "debug"
  format: "console"
redis:
  enabled: true
  addr: "localhost:6379"
kafka:
  enabled: true
  brokers: ["localhost:9092"]
  group_id: "dti-test"
minio:
  enabled: true
  endpoint: "localhost:9000"
  access_key: "key"
  secret_key: "secret"
prediction:
  base_url: "https://backend.example.com"
  api_key: "anon"
render:
  width: 320
  height: 240
  concurrency: 2
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(WithConfigPath(createTempConfigFile(t, validConfigYAML)))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.EnsureTopics)
	assert.Equal(t, "https://backend.example.com", cfg.Prediction.BaseURL)
	assert.Equal(t, 320, cfg.Render.Width)
	assert.Equal(t, 240, cfg.Render.Height)
	assert.Equal(t, 2, cfg.Render.Concurrency)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(WithConfigPath(createTempConfigFile(t, "invalid_yaml: [")))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(WithConfigPath(createTempConfigFile(t, "render:\n  theme: \"light\"\n")))
	assert.ErrorIs(t, err, ErrConfigValidation)
	assert.Contains(t, err.Error(), "render.theme")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DTI_SERVER_PORT", "9999")

	cfg, err := Load(WithConfigPath(createTempConfigFile(t, validConfigYAML)))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	t.Setenv("DTI_KAFKA_TOPICS_STRUCTURE_RENDERED", "custom.rendered")

	cfg, err := Load(WithConfigPath(createTempConfigFile(t, validConfigYAML)))
	require.NoError(t, err)
	assert.Equal(t, "custom.rendered", cfg.Kafka.Topics.StructureRendered)
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(WithConfigPath(createTempConfigFile(t, "server:\n  port: 8080\n")))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultRenderWidth, cfg.Render.Width)
	assert.Equal(t, DefaultRenderHeight, cfg.Render.Height)
	assert.Equal(t, "dark", cfg.Render.Theme)
	assert.Equal(t, DefaultRenderConcurrency, cfg.Render.Concurrency)
	assert.Zero(t, cfg.Render.AcquireTimeout)
	assert.True(t, cfg.Board.CacheDiagrams)
	assert.False(t, cfg.Board.ArchiveDiagrams)
	assert.True(t, cfg.Monitoring.Prometheus.Enabled)
	assert.Equal(t, TopicPredictionCompleted, cfg.Kafka.Topics.PredictionCompleted)
	assert.Equal(t, DefaultStructureBucket, cfg.MinIO.StructureBucket)
}

func TestLoad_WithSearchPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(validConfigYAML), 0o644))

	cfg, err := Load(WithSearchPaths(filepath.Join(dir, "nope"), dir))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Render.Width)
}

func TestLoad_WithSearchPaths_NotFound(t *testing.T) {
	_, err := Load(WithSearchPaths(t.TempDir()))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_WithOverrides(t *testing.T) {
	cfg, err := Load(
		WithConfigPath(createTempConfigFile(t, validConfigYAML)),
		WithOverrides(map[string]interface{}{"server.port": 7777}),
	)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DTI_RENDER_WIDTH", "400")
	t.Setenv("DTI_REDIS_ENABLED", "true")
	t.Setenv("DTI_REDIS_ADDR", "cache:6380")
	t.Setenv("DTI_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DTI_KAFKA_ENSURE_TOPICS", "false")
	t.Setenv("DTI_PREDICTION_CACHE_TTL", "15m")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Render.Width)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.EnsureTopics)
	assert.Equal(t, 15*time.Minute, cfg.Prediction.CacheTTL)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	})
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsLogLevel(t *testing.T) {
	path := createTempConfigFile(t, "log:\n  level: info\n")

	var level atomic.Value
	require.NoError(t, Watch(path, func(c *Config) { level.Store(c.Log.Level) }, nil))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 5*time.Second, 20*time.Millisecond)
}
