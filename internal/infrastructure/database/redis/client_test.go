package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&Config{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient_Success(t *testing.T) {
	_, client := newMiniredisClient(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Check(context.Background()))
	assert.Equal(t, "redis", client.Name())
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &Config{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1}
	client, err := NewClient(cfg, logging.NewNopLogger())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_CommandsAfterClose(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.SetNX(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Exists(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.PTTL(ctx, "k").Err(), ErrClientClosed)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}
