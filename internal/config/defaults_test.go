package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultRenderWidth, cfg.Render.Width)
	assert.Equal(t, DefaultRenderHeight, cfg.Render.Height)
	assert.Equal(t, DefaultRenderTheme, cfg.Render.Theme)
	assert.Equal(t, DefaultRenderConcurrency, cfg.Render.Concurrency)
	assert.Equal(t, TopicBoardExported, cfg.Kafka.Topics.BoardExported)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Monitoring.Prometheus.Namespace)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Render.Width = 640
	cfg.Prediction.Timeout = time.Second
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 640, cfg.Render.Width)
	assert.Equal(t, time.Second, cfg.Prediction.Timeout)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
